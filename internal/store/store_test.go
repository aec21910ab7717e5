// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playkit/dtg/internal/item"
)

// runStoreSuite exercises the Store contract against any backend; each
// backend's own test file calls this with a fresh instance.
func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	tasks := []item.Task{
		{ItemID: "item-1", SourceURL: "https://cdn.example.com/video/seg1.ts", Type: item.TaskTypeVideo, Order: 1},
		{ItemID: "item-1", SourceURL: "https://cdn.example.com/video/seg0.ts", Type: item.TaskTypeVideo, Order: 0},
		{ItemID: "item-1", SourceURL: "https://cdn.example.com/video/seg2.ts", Type: item.TaskTypeVideo, Order: 2},
	}
	require.NoError(t, s.InsertTasks(ctx, "item-1", tasks))

	listed, err := s.ListTasks(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "https://cdn.example.com/video/seg0.ts", listed[0].SourceURL)
	require.Equal(t, "https://cdn.example.com/video/seg1.ts", listed[1].SourceURL)
	require.Equal(t, "https://cdn.example.com/video/seg2.ts", listed[2].SourceURL)

	// InsertTasks overwrites any pre-existing batch.
	require.NoError(t, s.InsertTasks(ctx, "item-1", tasks[:1]))
	listed, err = s.ListTasks(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, s.InsertTasks(ctx, "item-1", tasks))

	updated := tasks[0]
	updated.ResumeToken = []byte("resume-token")
	require.NoError(t, s.UpdateTask(ctx, updated))
	listed, _ = s.ListTasks(ctx, "item-1")
	var found bool
	for _, tk := range listed {
		if tk.SourceURL == updated.SourceURL {
			require.Equal(t, []byte("resume-token"), tk.ResumeToken)
			found = true
		}
	}
	require.True(t, found)

	err = s.UpdateTask(ctx, item.Task{ItemID: "item-1", SourceURL: "does-not-exist"})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteTask(ctx, "item-1", tasks[1].SourceURL))
	listed, _ = s.ListTasks(ctx, "item-1")
	require.Len(t, listed, 2)

	require.NoError(t, s.DeleteItemTasks(ctx, "item-1"))
	listed, _ = s.ListTasks(ctx, "item-1")
	require.Empty(t, listed)

	now := time.Now()
	it := item.NewItem("item-1", "https://cdn.example.com/master.m3u8", "/tmp/item-1",
		item.SelectionOptions{}, now)
	it.State = item.StateInProgress
	require.NoError(t, s.PutItem(ctx, it))

	got, err := s.GetItem(ctx, "item-1")
	require.NoError(t, err)
	require.Equal(t, it.ID, got.ID)
	require.Equal(t, item.StateInProgress, got.State)

	it2 := item.NewItem("item-2", "https://cdn.example.com/master2.m3u8", "/tmp/item-2",
		item.SelectionOptions{}, now)
	it2.State = item.StateCompleted
	require.NoError(t, s.PutItem(ctx, it2))

	inProgress, err := s.ListItemsByState(ctx, item.StateInProgress)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	require.Equal(t, "item-1", inProgress[0].ID)

	require.NoError(t, s.DeleteItem(ctx, "item-1"))
	_, err = s.GetItem(ctx, "item-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Suite(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreSuite(t, s)
}

func TestBoltStore_Suite(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBoltStore(dir + "/store.db")
	require.NoError(t, err)
	defer s.Close()
	runStoreSuite(t, s)
}

func TestBadgerStore_Suite(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	runStoreSuite(t, s)
}
