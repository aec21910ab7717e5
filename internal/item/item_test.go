// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package item

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	now := time.Unix(1000, 0)
	it := NewItem("abc", "https://example.test/master.m3u8", "/data/items/abc", SelectionOptions{}, now)

	require.Equal(t, StateNew, it.State)
	require.Equal(t, now, it.CreatedAt)
	require.Equal(t, now, it.UpdatedAt)
	require.Zero(t, it.DownloadedSize)
}

func TestItem_RecordTaskProgress_AggregatesAcrossTasks(t *testing.T) {
	now := time.Unix(1000, 0)
	it := NewItem("abc", "https://example.test/master.m3u8", "/root", SelectionOptions{}, now)

	it.RecordTaskProgress(PerTaskProgress{TaskID: "t1", BytesSoFar: 100, EstimatedTotal: 1000}, now)
	it.RecordTaskProgress(PerTaskProgress{TaskID: "t2", BytesSoFar: 50, EstimatedTotal: 500}, now)

	require.EqualValues(t, 150, it.DownloadedSize)
	require.EqualValues(t, 1500, it.EstimatedTotalSize)
}

func TestItem_RecordTaskProgress_RepeatedReportDoesNotDoubleCount(t *testing.T) {
	now := time.Unix(1000, 0)
	it := NewItem("abc", "https://example.test/master.m3u8", "/root", SelectionOptions{}, now)

	it.RecordTaskProgress(PerTaskProgress{TaskID: "t1", BytesSoFar: 100, EstimatedTotal: 1000}, now)
	it.RecordTaskProgress(PerTaskProgress{TaskID: "t1", BytesSoFar: 250, EstimatedTotal: 1000}, now)

	require.EqualValues(t, 250, it.DownloadedSize)
}

func TestItem_ForgetTask_DoesNotUncountBytes(t *testing.T) {
	now := time.Unix(1000, 0)
	it := NewItem("abc", "https://example.test/master.m3u8", "/root", SelectionOptions{}, now)

	it.RecordTaskProgress(PerTaskProgress{TaskID: "t1", BytesSoFar: 100, EstimatedTotal: 100}, now)
	require.EqualValues(t, 100, it.DownloadedSize)

	it.ForgetTask("t1")
	require.EqualValues(t, 100, it.DownloadedSize, "completed task's bytes must remain counted")

	// a later progress report for a different task still adds on top of
	// the already-completed bytes: DownloadedSize never decreases.
	it.RecordTaskProgress(PerTaskProgress{TaskID: "t2", BytesSoFar: 10, EstimatedTotal: 10}, now)
	require.EqualValues(t, 110, it.DownloadedSize)
}
