// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package planner turns a rendition selection into the full list of
// download tasks an item needs, with destinations derived the same way the
// rewriter derives its rewritten URIs.
package planner

import (
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/m3u8/playlist"
	"github.com/playkit/dtg/internal/pathutil"
)

// Stream pairs a rendition's declared bandwidth with its already-parsed
// media playlist, so the planner never has to fetch or parse anything
// itself.
type Stream struct {
	URI       string
	Bandwidth int
	Media     *playlist.MediaPlaylist
}

// Input is everything the planner needs to enumerate one item's tasks.
type Input struct {
	ItemID   string
	ItemRoot string

	Video Stream
	Audio []Stream
	Text  []Stream

	// AudioBitrateFallback is used for an audio stream's size estimate when
	// the rendition declares no bandwidth of its own.
	AudioBitrateFallback int64
}

// Plan enumerates every download task for one item's selection, in
// dispatch order: the video stream, then each audio stream, then each text
// stream (each stream's init map, if any, before its segments in playlist
// order), and finally the key tasks.
// It errors if any task's destination would escape ItemRoot.
func Plan(in Input) ([]item.Task, error) {
	var tasks []item.Task
	var err error
	order := 0

	tasks, order, err = appendStreamTasks(tasks, in.ItemID, in.ItemRoot, item.TaskTypeVideo, in.Video, in.Video.Bandwidth, order)
	if err != nil {
		return nil, err
	}

	for _, a := range in.Audio {
		bw := a.Bandwidth
		if bw <= 0 {
			bw = int(in.AudioBitrateFallback)
		}
		tasks, order, err = appendStreamTasks(tasks, in.ItemID, in.ItemRoot, item.TaskTypeAudio, a, bw, order)
		if err != nil {
			return nil, err
		}
	}

	for _, tx := range in.Text {
		tasks, order, err = appendStreamTasks(tasks, in.ItemID, in.ItemRoot, item.TaskTypeText, tx, 0, order)
		if err != nil {
			return nil, err
		}
	}

	tasks, err = appendKeyTasks(tasks, in.ItemID, in.ItemRoot, in.Video, in.Audio, in.Text)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// appendStreamTasks emits one task for the stream's init map (if present)
// followed by one task per segment in order, numbering them from the running
// order counter it returns, and estimating each segment's size as
// bandwidth*duration/8.
func appendStreamTasks(tasks []item.Task, itemID, itemRoot string, taskType item.TaskType, s Stream, bandwidth int, order int) ([]item.Task, int, error) {
	if s.Media == nil {
		return tasks, order, nil
	}

	if s.Media.MapURI != "" {
		dest, err := pathutil.TaskDestination(itemRoot, pathutil.TaskType(taskType), s.Media.MapURI)
		if err != nil {
			return nil, order, err
		}
		tasks = append(tasks, item.Task{
			ItemID:      itemID,
			SourceURL:   s.Media.MapURI,
			Type:        taskType,
			Destination: dest,
			Order:       order,
		})
		order++
	}

	for _, seg := range s.Media.Segments {
		var size int64
		if bandwidth > 0 && taskType != item.TaskTypeText {
			size = int64(float64(bandwidth) * seg.Duration / 8)
		}
		dest, err := pathutil.TaskDestination(itemRoot, pathutil.TaskType(taskType), seg.URI)
		if err != nil {
			return nil, order, err
		}
		tasks = append(tasks, item.Task{
			ItemID:        itemID,
			SourceURL:     seg.URI,
			Type:          taskType,
			Destination:   dest,
			Order:         order,
			EstimatedSize: size,
		})
		order++
	}

	return tasks, order, nil
}

// appendKeyTasks emits one key-type task per distinct AES-128 key URI found
// across every selected stream's already-parsed key list. FairPlay and
// other non-AES-128 keys are session keys the rewriter preserves verbatim
// and are never fetched.
func appendKeyTasks(tasks []item.Task, itemID, itemRoot string, video Stream, audio, text []Stream) ([]item.Task, error) {
	seen := make(map[string]bool)
	order := len(tasks)

	add := func(s Stream) error {
		if s.Media == nil {
			return nil
		}
		for _, k := range s.Media.Keys {
			if !k.IsAES128() || k.URI == "" || seen[k.URI] {
				continue
			}
			seen[k.URI] = true
			dest, err := pathutil.TaskDestination(itemRoot, pathutil.TaskTypeKey, k.URI)
			if err != nil {
				return err
			}
			tasks = append(tasks, item.Task{
				ItemID:      itemID,
				SourceURL:   k.URI,
				Type:        item.TaskTypeKey,
				Destination: dest,
				Order:       order,
			})
			order++
		}
		return nil
	}

	if err := add(video); err != nil {
		return nil, err
	}
	for _, a := range audio {
		if err := add(a); err != nil {
			return nil, err
		}
	}
	for _, tx := range text {
		if err := add(tx); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

// TotalDuration sums a stream's segment durations, the basis for an
// item's estimated total size contribution.
func TotalDuration(s Stream) float64 {
	if s.Media == nil {
		return 0
	}
	return s.Media.TotalDuration()
}
