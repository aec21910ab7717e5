// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/m3u8/planner"
	"github.com/playkit/dtg/internal/m3u8/playlist"
	"github.com/playkit/dtg/internal/m3u8/rewriter"
	"github.com/playkit/dtg/internal/m3u8/selector"
	"github.com/playkit/dtg/internal/pathutil"
	"github.com/playkit/dtg/internal/progress"
	"github.com/playkit/dtg/internal/telemetry"
)

// loadedStream is one rendition's raw and parsed media playlist, kept
// together since the rewriter needs the former and the planner the latter.
type loadedStream struct {
	uri     string
	url     *url.URL
	raw     string
	media   *playlist.MediaPlaylist
	taskTyp pathutil.TaskType
}

// AddItem loads sourceURL's master playlist, runs rendition selection
// against opts and caps, enumerates every fetch task the selection implies,
// persists the item and its tasks, and writes the localized master and
// media playlists to the item's root directory. The returned item is in
// StateMetadataLoaded, ready for StartItem.
func (m *Manager) AddItem(ctx context.Context, itemID, sourceURL string, opts item.SelectionOptions, caps item.DeviceCapabilities) (*item.Item, error) {
	if itemID == "" || sourceURL == "" {
		return nil, &dtgerr.InvalidStateError{ItemID: itemID, State: "new", Op: "addItem: id and sourceURL are required"}
	}
	if _, err := m.deps.Store.GetItem(ctx, itemID); err == nil {
		return nil, &dtgerr.InvalidStateError{ItemID: itemID, State: "exists", Op: "addItem"}
	}

	root := m.itemRoot(itemID)
	if err := ensureDirs(root); err != nil {
		return nil, &dtgerr.DBFailureError{Op: "ensureDirs", Err: err}
	}

	masterURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, &dtgerr.MalformedPlaylistError{URL: sourceURL, Err: err}
	}

	masterText, err := m.fetchText(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	master, err := playlist.ParseMaster(masterText, masterURL)
	if err != nil {
		return nil, err
	}

	result, ok := selector.Select(master, toSelectorOptions(opts), toSelectorCapabilities(caps))
	if !ok {
		return nil, fmt.Errorf("addItem %s: %w: no playable variant survived selection", itemID, dtgerr.ErrInvalidInternalState)
	}

	video, err := m.loadStream(ctx, result.Video.URI, pathutil.TaskTypeVideo)
	if err != nil {
		return nil, err
	}

	var audioLoaded, textLoaded []loadedStream
	var selectedAudio, selectedText []rewriter.SelectedMedia
	for _, a := range result.Audio {
		if a.URI == "" {
			continue
		}
		s, err := m.loadStream(ctx, a.URI, pathutil.TaskTypeAudio)
		if err != nil {
			return nil, err
		}
		audioLoaded = append(audioLoaded, s)
		selectedAudio = append(selectedAudio, rewriter.SelectedMedia{
			Rendition: a,
			RelURI:    pathutil.RelativeDestination(pathutil.TaskTypeAudio, a.URI),
		})
	}
	for _, tx := range result.Text {
		if tx.URI == "" {
			continue
		}
		s, err := m.loadStream(ctx, tx.URI, pathutil.TaskTypeText)
		if err != nil {
			return nil, err
		}
		textLoaded = append(textLoaded, s)
		selectedText = append(selectedText, rewriter.SelectedMedia{
			Rendition: tx,
			RelURI:    pathutil.RelativeDestination(pathutil.TaskTypeText, tx.URI),
		})
	}

	planInput := planner.Input{
		ItemID:               itemID,
		ItemRoot:             root,
		Video:                planner.Stream{URI: result.Video.URI, Bandwidth: result.Video.Bandwidth, Media: video.media},
		AudioBitrateFallback: int64(defaultAudioBitrateFallback),
	}
	for _, a := range result.Audio {
		if a.URI == "" {
			continue
		}
		s := streamFor(a.URI, audioLoaded)
		planInput.Audio = append(planInput.Audio, planner.Stream{URI: a.URI, Bandwidth: a.Bandwidth, Media: s.media})
	}
	for _, tx := range result.Text {
		if tx.URI == "" {
			continue
		}
		s := streamFor(tx.URI, textLoaded)
		planInput.Text = append(planInput.Text, planner.Stream{URI: tx.URI, Media: s.media})
	}

	tasks, err := planner.Plan(planInput)
	if err != nil {
		return nil, &dtgerr.DBFailureError{Op: "planner.Plan", Err: err}
	}

	if err := m.writeMaster(root, master, *result.Video, selectedAudio, selectedText); err != nil {
		return nil, &dtgerr.DBFailureError{Op: "writeMaster", Err: err}
	}
	for _, s := range append(append([]loadedStream{video}, audioLoaded...), textLoaded...) {
		if err := m.writeRewrittenMedia(root, s); err != nil {
			return nil, &dtgerr.DBFailureError{Op: "writeRewrittenMedia", Err: err}
		}
	}

	now := time.Now()
	it := item.NewItem(itemID, sourceURL, root, opts, now)
	for _, t := range tasks {
		it.EstimatedTotalSize += t.EstimatedSize
	}
	if err := m.deps.Store.PutItem(ctx, it); err != nil {
		return nil, &dtgerr.DBFailureError{Op: "PutItem", Err: err}
	}
	if err := m.deps.Store.InsertTasks(ctx, itemID, tasks); err != nil {
		return nil, &dtgerr.DBFailureError{Op: "InsertTasks", Err: err}
	}

	if _, err := m.deps.Tracker.Fire(ctx, itemID, progress.EventMetadataLoaded); err != nil {
		return nil, err
	}

	return m.deps.Store.GetItem(ctx, itemID)
}

// defaultAudioBitrateFallback is used to size an audio-only segment's
// estimated contribution when its rendition declares no BANDWIDTH of its
// own (common for audio-only #EXT-X-MEDIA entries).
const defaultAudioBitrateFallback = 128000

func streamFor(uri string, streams []loadedStream) loadedStream {
	for _, s := range streams {
		if s.uri == uri {
			return s
		}
	}
	return loadedStream{}
}

func (m *Manager) fetchText(ctx context.Context, streamURL string) (string, error) {
	spanCtx, span := telemetry.Tracer("dtg.manager").Start(ctx, "fetchText",
		trace.WithAttributes(telemetry.ItemAttributes("", streamURL)...))
	defer span.End()

	loadCtx, cancel := context.WithTimeout(spanCtx, m.cfg.Worker.RequestTimeout)
	defer cancel()
	text, err := m.deps.HTTP.GetText(loadCtx, streamURL)
	if err != nil {
		span.RecordError(err)
	}
	return text, err
}

// loadStream fetches and parses one rendition's media playlist, keeping the
// raw text alongside the parsed form for the rewriter's later pass.
func (m *Manager) loadStream(ctx context.Context, streamURL string, taskTyp pathutil.TaskType) (loadedStream, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return loadedStream{}, &dtgerr.MalformedPlaylistError{URL: streamURL, Err: err}
	}

	text, err := m.fetchText(ctx, streamURL)
	if err != nil {
		return loadedStream{}, err
	}

	media, err := playlist.ParseMedia(text, u)
	if err != nil {
		return loadedStream{}, err
	}
	return loadedStream{uri: streamURL, url: u, raw: text, media: media, taskTyp: taskTyp}, nil
}

// writeMaster renders and atomically writes the localized master playlist
// to the item root.
func (m *Manager) writeMaster(root string, master *playlist.Master, video playlist.Variant, audio, text []rewriter.SelectedMedia) error {
	out := rewriter.WriteMaster(rewriter.MasterInput{
		SessionKeyLines: master.SessionKeyLines,
		Video:           video,
		VideoRelURI:     pathutil.RelativeDestination(pathutil.TaskTypeVideo, video.URI),
		Audio:           audio,
		Text:            text,
	})
	return renameio.WriteFile(filepath.Join(root, "master.m3u8"), []byte(out), 0o644)
}

// writeRewrittenMedia renders and atomically writes one stream's localized
// media playlist to its task-type destination, derived the same way the
// planner derives its segment destinations.
func (m *Manager) writeRewrittenMedia(root string, s loadedStream) error {
	out, err := rewriter.WriteMedia(s.raw, s.url)
	if err != nil {
		return err
	}
	dest, err := pathutil.TaskDestination(root, s.taskTyp, s.uri)
	if err != nil {
		return err
	}
	return renameio.WriteFile(dest, []byte(out), 0o644)
}
