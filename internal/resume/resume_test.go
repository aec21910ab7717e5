// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runSuite exercises the Store contract against any backend; each backend's
// own test calls this with a fresh instance.
func runSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "item-1", "https://cdn.example.com/seg0.ts")
	require.ErrorIs(t, err, ErrNotFound)

	cp := Checkpoint{Token: []byte("1048576"), UpdatedAt: time.Now().Truncate(time.Second)}
	require.NoError(t, s.Put(ctx, "item-1", "https://cdn.example.com/seg0.ts", cp))

	got, err := s.Get(ctx, "item-1", "https://cdn.example.com/seg0.ts")
	require.NoError(t, err)
	require.Equal(t, cp.Token, got.Token)
	require.True(t, cp.UpdatedAt.Equal(got.UpdatedAt))

	// Put overwrites an existing checkpoint for the same key.
	cp2 := Checkpoint{Token: []byte("2097152"), UpdatedAt: time.Now().Truncate(time.Second)}
	require.NoError(t, s.Put(ctx, "item-1", "https://cdn.example.com/seg0.ts", cp2))
	got, err = s.Get(ctx, "item-1", "https://cdn.example.com/seg0.ts")
	require.NoError(t, err)
	require.Equal(t, cp2.Token, got.Token)

	require.NoError(t, s.Put(ctx, "item-1", "https://cdn.example.com/seg1.ts", cp))
	require.NoError(t, s.Put(ctx, "item-2", "https://cdn.example.com/seg0.ts", cp))

	require.NoError(t, s.Delete(ctx, "item-1", "https://cdn.example.com/seg0.ts"))
	_, err = s.Get(ctx, "item-1", "https://cdn.example.com/seg0.ts")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteItem(ctx, "item-1"))
	_, err = s.Get(ctx, "item-1", "https://cdn.example.com/seg1.ts")
	require.ErrorIs(t, err, ErrNotFound)

	// item-2's checkpoint is untouched by item-1's deletion.
	_, err = s.Get(ctx, "item-2", "https://cdn.example.com/seg0.ts")
	require.NoError(t, err)
}

func TestMemoryStore_Suite(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runSuite(t, s)
}

func TestSqliteStore_Suite(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSqliteStore(dir + "/resume.sqlite")
	require.NoError(t, err)
	defer s.Close()
	runSuite(t, s)
}

func TestSqliteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/resume.sqlite"

	s1, err := NewSqliteStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s1.Put(ctx, "item-1", "https://cdn.example.com/seg0.ts", Checkpoint{
		Token:     []byte("4096"),
		UpdatedAt: time.Now().Truncate(time.Second),
	}))
	require.NoError(t, s1.Close())

	s2, err := NewSqliteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "item-1", "https://cdn.example.com/seg0.ts")
	require.NoError(t, err)
	require.Equal(t, []byte("4096"), got.Token)
}
