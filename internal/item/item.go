// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package item

import (
	"encoding/json"
	"time"

	"github.com/playkit/dtg/internal/langtag"
)

// VideoCodec names a video codec family a caller may prefer or floor a
// bitrate for.
type VideoCodec string

const (
	VideoCodecH264 VideoCodec = "h264"
	VideoCodecHEVC VideoCodec = "hevc"
)

// AudioCodec names an audio codec family a caller may prefer.
type AudioCodec string

const (
	AudioCodecMP4A AudioCodec = "mp4a"
	AudioCodecAC3  AudioCodec = "ac-3"
	AudioCodecEAC3 AudioCodec = "ec-3"
)

// SelectionOptions are the caller-supplied constraints that drive the
// rendition selector. They are frozen on the Item at creation time: the
// same options must be replayed verbatim if metadata is ever reloaded, so
// that the selector's choice is reproducible.
type SelectionOptions struct {
	MinWidth             int
	MinHeight            int
	MinBitrateByCodec    map[VideoCodec]int
	PreferredVideoCodecs []VideoCodec
	PreferredAudioCodecs []AudioCodec
	AllowSoftwareHEVC    bool
	AudioLanguagePolicy  langtag.Policy
	AudioLanguages       []string
	TextLanguagePolicy   langtag.Policy
	TextLanguages        []string
}

// DeviceCapabilities are the hardware/runtime hints the selector weighs
// alongside SelectionOptions when choosing between codecs of equal rank.
type DeviceCapabilities struct {
	HardwareHEVC bool
	SoftwareHEVC bool
	AC3          bool
	EAC3         bool
}

// PerTaskProgress tracks one in-flight or completed task's contribution to
// an item's aggregate byte counters, so the aggregator can recompute
// downloadedSize without double-counting a task that reports progress more
// than once (see SPEC_FULL.md's resolution of the per-task-accounting open
// question).
type PerTaskProgress struct {
	TaskID         string
	BytesSoFar     int64
	EstimatedTotal int64
}

// Item is the unit of offline content: one master playlist, one selection,
// and the on-disk tree being assembled for it.
type Item struct {
	ID        string
	SourceURL string
	State     State
	Selection SelectionOptions
	RootDir   string
	CreatedAt time.Time
	UpdatedAt time.Time

	// EstimatedTotalSize starts as the sum of the planner's per-task size
	// estimates; a progress report raises it when completedBytes plus the
	// live tasks' estimates exceed it, and it never shrinks.
	EstimatedTotalSize int64

	// DownloadedSize is monotonically non-decreasing until removal (see
	// spec invariant): completedBytes plus the live tasks map's BytesSoFar.
	// A repeated progress report for the same still-active task replaces
	// its map entry rather than adding to it (keeping the larger BytesSoFar),
	// so it is never double-counted;
	// forgetting a finished task folds its last-known bytes into
	// completedBytes instead of dropping them, so DownloadedSize never
	// decreases.
	DownloadedSize int64

	// LastError is the most recent error that moved this item into
	// interrupted, failed, or dbFailure, or empty if none occurred.
	LastError string

	completedBytes int64
	tasks          map[string]PerTaskProgress
}

// NewItem creates a new item in StateNew. id and sourceURL must be
// non-empty; callers validate that before construction.
func NewItem(id, sourceURL, rootDir string, selection SelectionOptions, now time.Time) *Item {
	return &Item{
		ID:        id,
		SourceURL: sourceURL,
		State:     StateNew,
		Selection: selection,
		RootDir:   rootDir,
		CreatedAt: now,
		UpdatedAt: now,
		tasks:     make(map[string]PerTaskProgress),
	}
}

// RecordTaskProgress updates one task's byte counters and recomputes the
// item's aggregate DownloadedSize/EstimatedTotalSize from completedBytes
// plus the live tasks map, so repeated progress reports for the same task
// never inflate the total. A report with fewer bytes than the task's
// previous one keeps the previous count, so DownloadedSize never decreases.
func (it *Item) RecordTaskProgress(p PerTaskProgress, now time.Time) {
	if it.tasks == nil {
		it.tasks = make(map[string]PerTaskProgress)
	}
	if prev, ok := it.tasks[p.TaskID]; ok && prev.BytesSoFar > p.BytesSoFar {
		p.BytesSoFar = prev.BytesSoFar
	}
	it.tasks[p.TaskID] = p
	it.recompute(now)
}

// ForgetTask folds a task's last-known bytes into completedBytes and drops
// it from the live set, e.g. once the store has deleted it on successful
// completion. DownloadedSize does not change, since those bytes were
// already counted and the invariant requires it never decrease.
func (it *Item) ForgetTask(taskID string) {
	if tp, ok := it.tasks[taskID]; ok {
		it.completedBytes += tp.BytesSoFar
		delete(it.tasks, taskID)
	}
}

func (it *Item) recompute(now time.Time) {
	var downloaded, estimated int64
	for _, tp := range it.tasks {
		downloaded += tp.BytesSoFar
		estimated += tp.EstimatedTotal
	}
	it.DownloadedSize = it.completedBytes + downloaded
	if total := it.completedBytes + estimated; total > it.EstimatedTotalSize {
		it.EstimatedTotalSize = total
	}
	it.UpdatedAt = now
}

// itemJSON mirrors Item but exposes its unexported per-task accounting, so
// a store backend that round-trips an Item through JSON (bolt, badger)
// preserves completedBytes and the live tasks map exactly rather than
// silently losing them across a restart.
type itemJSON struct {
	ID                 string                     `json:"id"`
	SourceURL          string                     `json:"sourceUrl"`
	State              State                      `json:"state"`
	Selection          SelectionOptions           `json:"selection"`
	RootDir            string                     `json:"rootDir"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
	EstimatedTotalSize int64                      `json:"estimatedTotalSize"`
	DownloadedSize     int64                      `json:"downloadedSize"`
	LastError          string                     `json:"lastError"`
	CompletedBytes     int64                      `json:"completedBytes"`
	Tasks              map[string]PerTaskProgress `json:"tasks"`
}

// MarshalJSON implements json.Marshaler.
func (it *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:                 it.ID,
		SourceURL:          it.SourceURL,
		State:              it.State,
		Selection:          it.Selection,
		RootDir:            it.RootDir,
		CreatedAt:          it.CreatedAt,
		UpdatedAt:          it.UpdatedAt,
		EstimatedTotalSize: it.EstimatedTotalSize,
		DownloadedSize:     it.DownloadedSize,
		LastError:          it.LastError,
		CompletedBytes:     it.completedBytes,
		Tasks:              it.tasks,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	var aux itemJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	it.ID = aux.ID
	it.SourceURL = aux.SourceURL
	it.State = aux.State
	it.Selection = aux.Selection
	it.RootDir = aux.RootDir
	it.CreatedAt = aux.CreatedAt
	it.UpdatedAt = aux.UpdatedAt
	it.EstimatedTotalSize = aux.EstimatedTotalSize
	it.DownloadedSize = aux.DownloadedSize
	it.LastError = aux.LastError
	it.completedBytes = aux.CompletedBytes
	it.tasks = aux.Tasks
	if it.tasks == nil {
		it.tasks = make(map[string]PerTaskProgress)
	}
	return nil
}
