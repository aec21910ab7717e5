// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package selector chooses one video variant and a set of audio/text
// renditions from a parsed master playlist, honoring the caller's
// dimensional/bitrate/codec preferences and the device's decode
// capabilities.
package selector

import (
	"sort"
	"strings"

	"github.com/playkit/dtg/internal/langtag"
	"github.com/playkit/dtg/internal/m3u8/playlist"
)

// VideoCodec identifies a supported video codec family.
type VideoCodec string

const (
	CodecH264 VideoCodec = "H264"
	CodecHEVC VideoCodec = "HEVC"
)

const (
	defaultH264BitrateFloor = 180000
	defaultHEVCBitrateFloor = 120000
)

// Capabilities describes what the target device can decode.
type Capabilities struct {
	HardwareHEVC bool
	SoftwareHEVC bool
	AC3          bool
	EAC3         bool
}

// Options carries the caller's selection preferences.
type Options struct {
	MinWidth              int
	MinHeight             int
	// BitrateFloor maps a VideoCodec to its minimum acceptable bandwidth.
	// A zero or absent entry falls back to the package default for that codec.
	BitrateFloor map[VideoCodec]int
	// PreferredVideoCodecs is consulted, in order, only when both the H.264
	// and HEVC buckets have survivors after filtering.
	PreferredVideoCodecs   []VideoCodec
	AllowInefficientCodecs bool

	AudioLanguagePolicy langtag.Policy
	AudioLanguages      []string
	TextLanguagePolicy  langtag.Policy
	TextLanguages       []string
}

// Result is the outcome of a selection: one video variant plus the audio
// and text renditions admitted alongside it.
type Result struct {
	Video *playlist.Variant
	Audio []playlist.Rendition
	Text  []playlist.Rendition
}

// audioCodecPlayable reports whether the device can decode every declared
// audio codec in codecs. An unrecognized codec is assumed playable: this
// selector only actively excludes codecs it can positively identify as
// unsupported (AC-3 and E-AC-3 gated by capability flags).
func audioCodecPlayable(codecs []string, caps Capabilities) bool {
	for _, c := range codecs {
		lc := strings.ToLower(c)
		switch {
		case strings.HasPrefix(lc, "ac-3") || strings.HasPrefix(lc, "ac3"):
			if !caps.AC3 {
				return false
			}
		case strings.HasPrefix(lc, "ec-3") || strings.HasPrefix(lc, "eac3"):
			if !caps.EAC3 {
				return false
			}
		}
	}
	return true
}

func isVideoCodecToken(c string) bool {
	lc := strings.ToLower(c)
	return strings.HasPrefix(lc, "avc1") || strings.HasPrefix(lc, "avc3") ||
		strings.HasPrefix(lc, "hvc1") || strings.HasPrefix(lc, "hev1")
}

// audioCodecsOf returns the subset of a variant's CODECS list that are not
// recognizable video codec tokens, treating the remainder as audio codecs
// for capability filtering purposes.
func audioCodecsOf(v playlist.Variant) []string {
	var out []string
	for _, c := range v.Codecs {
		if !isVideoCodecToken(c) {
			out = append(out, c)
		}
	}
	return out
}

func hevcAllowed(caps Capabilities, opts Options) bool {
	return caps.HardwareHEVC || (caps.SoftwareHEVC && opts.AllowInefficientCodecs)
}

// bucketOf classifies a variant into the H.264 or HEVC bucket, or neither.
// A variant with no declared codecs defaults to H.264, matching the spec's
// "no declared codecs goes to the H.264 bucket" rule.
func bucketOf(v playlist.Variant, caps Capabilities, opts Options) (VideoCodec, bool) {
	if len(v.Codecs) == 0 {
		return CodecH264, true
	}
	hasAVC, hasHEVC := false, false
	for _, c := range v.Codecs {
		if v.HasCodecPrefix("avc1") || strings.HasPrefix(strings.ToLower(c), "avc3") {
			hasAVC = true
		}
		if strings.HasPrefix(strings.ToLower(c), "hvc1") || strings.HasPrefix(strings.ToLower(c), "hev1") {
			hasHEVC = true
		}
	}
	if hasAVC {
		return CodecH264, true
	}
	if hasHEVC && hevcAllowed(caps, opts) {
		return CodecHEVC, true
	}
	return "", false
}

// filterByDimension stably sorts variants ascending by dim and keeps those
// meeting min; if that empties the set, it falls back to the single largest.
func filterByDimension(variants []playlist.Variant, min int, dim func(playlist.Variant) int) []playlist.Variant {
	if min <= 0 {
		return variants
	}
	sorted := make([]playlist.Variant, len(variants))
	copy(sorted, variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dim(sorted[i]) < dim(sorted[j])
	})

	var kept []playlist.Variant
	for _, v := range sorted {
		if dim(v) >= min {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	return []playlist.Variant{largestBy(sorted, dim)}
}

func largestBy(variants []playlist.Variant, dim func(playlist.Variant) int) playlist.Variant {
	best := variants[0]
	for _, v := range variants[1:] {
		if dim(v) > dim(best) {
			best = v
		}
	}
	return best
}

func bitrateFloorFor(codec VideoCodec, opts Options) int {
	if opts.BitrateFloor != nil {
		if f, ok := opts.BitrateFloor[codec]; ok && f > 0 {
			return f
		}
	}
	if codec == CodecHEVC {
		return defaultHEVCBitrateFloor
	}
	return defaultH264BitrateFloor
}

func filterByBitrate(variants []playlist.Variant, floor int) []playlist.Variant {
	sorted := make([]playlist.Variant, len(variants))
	copy(sorted, variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bandwidth < sorted[j].Bandwidth
	})

	var kept []playlist.Variant
	for _, v := range sorted {
		if v.Bandwidth >= floor {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	return []playlist.Variant{largestBy(sorted, func(v playlist.Variant) int { return v.Bandwidth })}
}

// Select runs the full rendition-selection algorithm against a parsed
// master playlist and returns the chosen video variant plus admitted audio
// and text renditions.
func Select(master *playlist.Master, opts Options, caps Capabilities) (Result, bool) {
	buckets := map[VideoCodec][]playlist.Variant{}
	for _, v := range master.Variants {
		if !audioCodecPlayable(audioCodecsOf(v), caps) {
			continue
		}
		codec, ok := bucketOf(v, caps, opts)
		if !ok {
			continue
		}
		buckets[codec] = append(buckets[codec], v)
	}

	for codec, variants := range buckets {
		if opts.MinHeight > 0 {
			variants = filterByDimension(variants, opts.MinHeight, func(v playlist.Variant) int { return v.Height })
		}
		if opts.MinWidth > 0 {
			variants = filterByDimension(variants, opts.MinWidth, func(v playlist.Variant) int { return v.Width })
		}
		variants = filterByBitrate(variants, bitrateFloorFor(codec, opts))
		buckets[codec] = variants
	}

	h264, hevc := buckets[CodecH264], buckets[CodecHEVC]

	var chosen *playlist.Variant
	switch {
	case len(h264) == 0 && len(hevc) == 0:
		return Result{}, false
	case len(h264) > 0 && len(hevc) == 0:
		chosen = &h264[0]
	case len(h264) == 0 && len(hevc) > 0:
		chosen = &hevc[0]
	default:
		chosen = pickPreferred(h264, hevc, opts.PreferredVideoCodecs)
	}

	audio, text := selectMedia(master.Media, *chosen, opts)
	return Result{Video: chosen, Audio: audio, Text: text}, true
}

// pickPreferred resolves a tie between two non-empty buckets using the
// caller's codec preference order, defaulting to HEVC when no preference is
// given.
func pickPreferred(h264, hevc []playlist.Variant, preferred []VideoCodec) *playlist.Variant {
	for _, codec := range preferred {
		switch codec {
		case CodecH264:
			return &h264[0]
		case CodecHEVC:
			return &hevc[0]
		}
	}
	return &hevc[0]
}

func selectMedia(media []playlist.Rendition, video playlist.Variant, opts Options) (audio, text []playlist.Rendition) {
	for _, m := range media {
		switch m.Type {
		case playlist.RenditionAudio:
			if m.GroupID != video.AudioGroup {
				continue
			}
			if langtag.Matches(opts.AudioLanguagePolicy, opts.AudioLanguages, m.Language) {
				audio = append(audio, m)
			}
		case playlist.RenditionSubtitles:
			if m.GroupID != video.SubtitlesGroup {
				continue
			}
			if langtag.Matches(opts.TextLanguagePolicy, opts.TextLanguages, m.Language) {
				text = append(text, m)
			}
		}
	}
	return audio, text
}
