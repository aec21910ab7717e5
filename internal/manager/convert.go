// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/m3u8/selector"
)

// toSelectorOptions translates the caller-facing SelectionOptions (keyed
// by this module's own codec vocabulary) into the selector package's
// Options (keyed by the codec tokens the selector matches against parsed
// CODECS attributes).
func toSelectorOptions(opts item.SelectionOptions) selector.Options {
	floor := make(map[selector.VideoCodec]int, len(opts.MinBitrateByCodec))
	for codec, bps := range opts.MinBitrateByCodec {
		if sc, ok := toSelectorVideoCodec(codec); ok {
			floor[sc] = bps
		}
	}

	var preferred []selector.VideoCodec
	for _, c := range opts.PreferredVideoCodecs {
		if sc, ok := toSelectorVideoCodec(c); ok {
			preferred = append(preferred, sc)
		}
	}

	return selector.Options{
		MinWidth:               opts.MinWidth,
		MinHeight:              opts.MinHeight,
		BitrateFloor:           floor,
		PreferredVideoCodecs:   preferred,
		AllowInefficientCodecs: opts.AllowSoftwareHEVC,
		AudioLanguagePolicy:    opts.AudioLanguagePolicy,
		AudioLanguages:         opts.AudioLanguages,
		TextLanguagePolicy:     opts.TextLanguagePolicy,
		TextLanguages:          opts.TextLanguages,
	}
}

func toSelectorVideoCodec(c item.VideoCodec) (selector.VideoCodec, bool) {
	switch c {
	case item.VideoCodecH264:
		return selector.CodecH264, true
	case item.VideoCodecHEVC:
		return selector.CodecHEVC, true
	default:
		return "", false
	}
}

func toSelectorCapabilities(caps item.DeviceCapabilities) selector.Capabilities {
	return selector.Capabilities{
		HardwareHEVC: caps.HardwareHEVC,
		SoftwareHEVC: caps.SoftwareHEVC,
		AC3:          caps.AC3,
		EAC3:         caps.EAC3,
	}
}
