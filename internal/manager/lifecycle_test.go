// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playkit/dtg/internal/item"
)

func TestManager_StartItemRunsToCompletion(t *testing.T) {
	m, base := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddItem(ctx, "item-1", base+"/master.m3u8", testSelectionOptions(), item.DeviceCapabilities{})
	require.NoError(t, err)

	_, err = m.StartItem(ctx, "item-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		it, err := m.GetItem(ctx, "item-1")
		return err == nil && it.State == item.StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.False(t, m.isActive("item-1"))
}

func TestManager_StartItemIsANoOpWhenAlreadyActive(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testMaster))
	})
	mux.HandleFunc("/video.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testVideoMedia))
	})
	mux.HandleFunc("/audio.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testAudioMedia))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("first-"))
		if flusher != nil {
			flusher.Flush()
		}
		<-release
		w.Write([]byte("rest"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := newBareManager(t)
	ctx := context.Background()

	_, err := m.AddItem(ctx, "item-1", srv.URL+"/master.m3u8", testSelectionOptions(), item.DeviceCapabilities{})
	require.NoError(t, err)

	first, err := m.StartItem(ctx, "item-1")
	require.NoError(t, err)
	require.True(t, m.isActive("item-1"))

	second, err := m.StartItem(ctx, "item-1")
	require.NoError(t, err)
	require.Equal(t, first.State, second.State)

	close(release)
	require.Eventually(t, func() bool {
		return !m.isActive("item-1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_PauseItemSurrendersAndKeepsTasks(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testMaster))
	})
	mux.HandleFunc("/video.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testVideoMedia))
	})
	mux.HandleFunc("/audio.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testAudioMedia))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("first-chunk-"))
		if flusher != nil {
			flusher.Flush()
		}
		<-release
		w.Write([]byte("second-chunk"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := newBareManager(t)
	ctx := context.Background()

	_, err := m.AddItem(ctx, "item-1", srv.URL+"/master.m3u8", testSelectionOptions(), item.DeviceCapabilities{})
	require.NoError(t, err)
	_, err = m.StartItem(ctx, "item-1")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, err = m.PauseItem(ctx, "item-1")
	require.NoError(t, err)
	close(release)

	require.Eventually(t, func() bool {
		it, err := m.GetItem(ctx, "item-1")
		return err == nil && it.State == item.StatePaused
	}, 2*time.Second, 10*time.Millisecond)

	tasks, err := m.deps.Store.ListTasks(ctx, "item-1")
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
}

func TestManager_RemoveItemDeletesStoreAndTree(t *testing.T) {
	m, base := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddItem(ctx, "item-1", base+"/master.m3u8", testSelectionOptions(), item.DeviceCapabilities{})
	require.NoError(t, err)

	root := m.itemRoot("item-1")
	require.NoError(t, m.RemoveItem(ctx, "item-1"))

	_, err = m.GetItem(ctx, "item-1")
	require.Error(t, err)

	tasks, err := m.deps.Store.ListTasks(ctx, "item-1")
	require.NoError(t, err)
	require.Empty(t, tasks)

	_, statErr := os.Stat(root)
	require.True(t, os.IsNotExist(statErr), "item root directory should be removed")
}
