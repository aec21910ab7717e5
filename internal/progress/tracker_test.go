// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/store"
	"github.com/playkit/dtg/internal/worker"
)

// Tracker must satisfy worker.Aggregator so a worker can report outcomes
// through it without either package importing the other's concrete types.
var _ worker.Aggregator = (*Tracker)(nil)

type recordingObserver struct {
	mu     sync.Mutex
	states []stateNotification
	progs  []progressNotification
}

func (r *recordingObserver) OnStateChanged(itemID string, from, to item.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateNotification{itemID: itemID, from: from, to: to})
}

func (r *recordingObserver) OnProgress(itemID string, downloaded, estimated int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progs = append(r.progs, progressNotification{itemID: itemID, downloadedSize: downloaded, estimatedTotal: estimated})
}

func (r *recordingObserver) snapshotStates() []stateNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateNotification(nil), r.states...)
}

func newTestItem(t *testing.T, st store.Store, id string, state item.State) {
	t.Helper()
	it := item.NewItem(id, "https://cdn.example.com/"+id+"/master.m3u8", "/tmp/"+id, item.SelectionOptions{}, time.Now())
	it.State = state
	require.NoError(t, st.PutItem(context.Background(), it))
}

func TestTracker_FullLifecycleTransitionsInOrder(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateNew)

	obs := &recordingObserver{}
	tr := NewTracker(st, obs)
	defer tr.Close()

	ctx := context.Background()
	_, err := tr.Fire(ctx, "item-1", EventMetadataLoaded)
	require.NoError(t, err)
	_, err = tr.Fire(ctx, "item-1", EventStart)
	require.NoError(t, err)
	_, err = tr.Fire(ctx, "item-1", EventPause)
	require.NoError(t, err)
	_, err = tr.Fire(ctx, "item-1", EventResume)
	require.NoError(t, err)
	_, err = tr.Fire(ctx, "item-1", EventComplete)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(obs.snapshotStates()) == 5
	}, time.Second, time.Millisecond)

	got := obs.snapshotStates()
	want := []item.State{
		item.StateMetadataLoaded, item.StateInProgress, item.StatePaused,
		item.StateInProgress, item.StateCompleted,
	}
	for i, w := range want {
		require.Equal(t, w, got[i].to)
	}

	stored, err := st.GetItem(ctx, "item-1")
	require.NoError(t, err)
	require.Equal(t, item.StateCompleted, stored.State)
}

func TestTracker_RejectsInvalidTransition(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateNew)

	tr := NewTracker(st)
	defer tr.Close()

	_, err := tr.Fire(context.Background(), "item-1", EventStart)
	require.Error(t, err)

	stored, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Equal(t, item.StateNew, stored.State)
}

func TestTracker_WildcardRemoveRejectedFromTerminalState(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateCompleted)

	tr := NewTracker(st)
	defer tr.Close()

	_, err := tr.Fire(context.Background(), "item-1", EventRemove)
	require.Error(t, err)
}

func TestTracker_WildcardRemoveAllowedFromInterrupted(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateInterrupted)

	tr := NewTracker(st)
	defer tr.Close()

	to, err := tr.Fire(context.Background(), "item-1", EventRemove)
	require.NoError(t, err)
	require.Equal(t, item.StateRemoved, to)
}

func TestTracker_TaskProgressAccumulatesWithoutDoubleCounting(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateInProgress)

	tr := NewTracker(st)
	defer tr.Close()

	task := item.Task{ItemID: "item-1", SourceURL: "https://cdn.example.com/seg0.ts", EstimatedSize: 1000}
	tr.TaskProgress("item-1", task, 200)
	tr.TaskProgress("item-1", task, 500)

	require.Eventually(t, func() bool {
		it, _ := st.GetItem(context.Background(), "item-1")
		return it.DownloadedSize == 500
	}, time.Second, time.Millisecond, "a repeated report for the same task must overwrite, not add")

	tr.TaskCompleted("item-1", task)
	it, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Equal(t, int64(500), it.DownloadedSize, "forgetting a task must not change the aggregate total")
}

func TestTracker_ItemInterruptedRecordsLastErrorAndTransitions(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateInProgress)

	tr := NewTracker(st)
	defer tr.Close()

	tr.ItemInterrupted("item-1", context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		it, _ := st.GetItem(context.Background(), "item-1")
		return it.State == item.StateInterrupted
	}, time.Second, time.Millisecond)

	it, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Contains(t, it.LastError, "deadline exceeded")
}

func TestTracker_ItemFailedRecordsLastErrorAndTransitionsToFailed(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	newTestItem(t, st, "item-1", item.StateInProgress)

	tr := NewTracker(st)
	defer tr.Close()

	tr.ItemFailed("item-1", fmt.Errorf("fetch failed: status 404"))

	require.Eventually(t, func() bool {
		it, _ := st.GetItem(context.Background(), "item-1")
		return it.State == item.StateFailed
	}, time.Second, time.Millisecond)

	it, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Contains(t, it.LastError, "404")
}
