// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/m3u8/playlist"
)

func TestPlan_VideoWithInitMapOrdersMapFirst(t *testing.T) {
	media := &playlist.MediaPlaylist{
		MapURI: "https://cdn.example.com/video/init.mp4",
		Segments: []playlist.Segment{
			{URI: "https://cdn.example.com/video/seg0.ts", Duration: 6},
			{URI: "https://cdn.example.com/video/seg1.ts", Duration: 6},
		},
	}
	in := Input{
		ItemID:   "item-1",
		ItemRoot: "/tmp/item-1",
		Video:    Stream{URI: "https://cdn.example.com/video/index.m3u8", Bandwidth: 800000, Media: media},
	}
	tasks, err := Plan(in)
	require.NoError(t, err)

	require.Len(t, tasks, 3)
	require.Equal(t, "https://cdn.example.com/video/init.mp4", tasks[0].SourceURL)
	require.Equal(t, 0, tasks[0].Order)
	require.Equal(t, item.TaskTypeVideo, tasks[0].Type)
	require.Equal(t, 1, tasks[1].Order)
	require.Equal(t, 2, tasks[2].Order)
	require.Greater(t, tasks[1].EstimatedSize, int64(0))
}

func TestPlan_TenSegmentsPlusMapIsElevenTasks(t *testing.T) {
	media := &playlist.MediaPlaylist{MapURI: "https://cdn.example.com/video/init.mp4"}
	for i := 0; i < 10; i++ {
		media.Segments = append(media.Segments, playlist.Segment{URI: "https://cdn.example.com/video/seg.ts", Duration: 4})
	}
	in := Input{ItemID: "i", ItemRoot: "/tmp/i", Video: Stream{Bandwidth: 500000, Media: media}}
	tasks, err := Plan(in)
	require.NoError(t, err)
	require.Len(t, tasks, 11)
}

func TestPlan_ThreeDistinctAES128KeysProduceThreeKeyTasks(t *testing.T) {
	media := &playlist.MediaPlaylist{
		Segments: []playlist.Segment{{URI: "https://cdn.example.com/video/seg0.ts", Duration: 6}},
		Keys: []playlist.KeyTag{
			{Method: "AES-128", URI: "https://cdn.example.com/keys/a"},
			{Method: "AES-128", URI: "https://cdn.example.com/keys/b"},
			{Method: "AES-128", URI: "https://cdn.example.com/keys/c"},
			{Method: "AES-128", URI: "https://cdn.example.com/keys/a"}, // duplicate, should not re-add
			{Method: "SAMPLE-AES", Keyformat: "com.apple.streamingkeydelivery", URI: "skd://fairplay"},
		},
	}
	in := Input{ItemID: "i", ItemRoot: "/tmp/i", Video: Stream{Media: media}}
	tasks, err := Plan(in)
	require.NoError(t, err)

	keyCount := 0
	for _, tk := range tasks {
		if tk.Type == item.TaskTypeKey {
			keyCount++
		}
	}
	require.Equal(t, 3, keyCount)
}

func TestPlan_AudioFallsBackToCallerBitrateWhenUndeclared(t *testing.T) {
	media := &playlist.MediaPlaylist{
		Segments: []playlist.Segment{{URI: "https://cdn.example.com/audio/seg0.ts", Duration: 6}},
	}
	in := Input{
		ItemID:               "i",
		ItemRoot:             "/tmp/i",
		Video:                Stream{},
		Audio:                []Stream{{Bandwidth: 0, Media: media}},
		AudioBitrateFallback: 128000,
	}
	tasks, err := Plan(in)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, item.TaskTypeAudio, tasks[0].Type)
	require.Greater(t, tasks[0].EstimatedSize, int64(0))
}

func TestPlan_TextTasksCarryNoSizeEstimate(t *testing.T) {
	media := &playlist.MediaPlaylist{
		Segments: []playlist.Segment{{URI: "https://cdn.example.com/text/seg0.vtt", Duration: 6}},
	}
	in := Input{ItemID: "i", ItemRoot: "/tmp/i", Text: []Stream{{Bandwidth: 99999, Media: media}}}
	tasks, err := Plan(in)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, int64(0), tasks[0].EstimatedSize)
}

func TestPlan_DestinationIsPureFunctionOfURLAndType(t *testing.T) {
	media := &playlist.MediaPlaylist{
		Segments: []playlist.Segment{{URI: "https://cdn.example.com/video/seg0.ts", Duration: 6}},
	}
	in := Input{ItemID: "i", ItemRoot: "/tmp/i", Video: Stream{Media: media}}

	first, err := Plan(in)
	require.NoError(t, err)
	second, err := Plan(in)
	require.NoError(t, err)
	require.Equal(t, first[0].Destination, second[0].Destination)
	require.Contains(t, first[0].Destination, "video")
	require.True(t, len(first[0].Destination) > 0)
}
