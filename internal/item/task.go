// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package item

// TaskType names the logical kind of content a Task fetches.
type TaskType string

const (
	TaskTypeVideo TaskType = "video"
	TaskTypeAudio TaskType = "audio"
	TaskTypeText  TaskType = "text"
	TaskTypeKey   TaskType = "key"
)

// Task is a single byte-range-less HTTP GET the planner enumerated. Its
// primary identity within an item is SourceURL; its destination path is a
// pure function of (Type, SourceURL) so planner and rewriter always agree
// on it independently of any stored state.
type Task struct {
	ItemID      string
	SourceURL   string
	Type        TaskType
	Destination string
	// Order is a FIFO dispatch hint assigned by the planner: streams in
	// video, audio, text order, each stream's init map before its segments
	// in playlist order, and key tasks after all of them.
	Order int
	// EstimatedSize is this task's contribution to the item's estimated
	// total size; zero for text tasks, which carry no useful estimate.
	EstimatedSize int64
	// ResumeToken is an opaque blob surrendered by an in-flight fetch on
	// pause, letting a future start continue a partial transfer instead of
	// restarting it. Nil until the task has been paused at least once.
	ResumeToken []byte
}
