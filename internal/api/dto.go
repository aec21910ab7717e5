// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/langtag"
)

// langPolicyOrDefault maps a request's policy string onto langtag.Policy,
// defaulting to PolicyAll when the caller leaves the field blank: an
// unrecognized/empty langtag.Policy excludes every language-tagged
// rendition (see internal/langtag.Matches), which would silently drop
// audio/text tracks a caller that never mentioned language policy expects
// to get by default.
func langPolicyOrDefault(v string) langtag.Policy {
	if v == "" {
		return langtag.PolicyAll
	}
	return langtag.Policy(v)
}

// AddItemRequest is the JSON body for POST /items. It carries its own field
// names and tags rather than embedding item.SelectionOptions/
// DeviceCapabilities directly, so the wire shape can evolve independently
// of the internal selection types those structs were designed around.
type AddItemRequest struct {
	ID        string `json:"id"`
	SourceURL string `json:"sourceUrl"`

	MinWidth             int                    `json:"minWidth,omitempty"`
	MinHeight            int                    `json:"minHeight,omitempty"`
	MinBitrateByCodec    map[string]int         `json:"minBitrateByCodec,omitempty"`
	PreferredVideoCodecs []string               `json:"preferredVideoCodecs,omitempty"`
	PreferredAudioCodecs []string               `json:"preferredAudioCodecs,omitempty"`
	AllowSoftwareHEVC    bool                   `json:"allowSoftwareHevc,omitempty"`
	AudioLanguagePolicy  string                 `json:"audioLanguagePolicy,omitempty"`
	AudioLanguages       []string               `json:"audioLanguages,omitempty"`
	TextLanguagePolicy   string                 `json:"textLanguagePolicy,omitempty"`
	TextLanguages        []string               `json:"textLanguages,omitempty"`
	Capabilities         DeviceCapabilitiesBody `json:"capabilities,omitempty"`
}

// DeviceCapabilitiesBody is the wire shape of item.DeviceCapabilities.
type DeviceCapabilitiesBody struct {
	HardwareHEVC bool `json:"hardwareHevc,omitempty"`
	SoftwareHEVC bool `json:"softwareHevc,omitempty"`
	AC3          bool `json:"ac3,omitempty"`
	EAC3         bool `json:"eac3,omitempty"`
}

// toSelectionOptions converts the request body into the internal selection
// types AddItem expects; a blank language policy defaults to
// langtag.PolicyAll.
func (r AddItemRequest) toSelectionOptions() item.SelectionOptions {
	minBitrate := make(map[item.VideoCodec]int, len(r.MinBitrateByCodec))
	for codec, bitrate := range r.MinBitrateByCodec {
		minBitrate[item.VideoCodec(codec)] = bitrate
	}
	videoCodecs := make([]item.VideoCodec, len(r.PreferredVideoCodecs))
	for i, c := range r.PreferredVideoCodecs {
		videoCodecs[i] = item.VideoCodec(c)
	}
	audioCodecs := make([]item.AudioCodec, len(r.PreferredAudioCodecs))
	for i, c := range r.PreferredAudioCodecs {
		audioCodecs[i] = item.AudioCodec(c)
	}
	return item.SelectionOptions{
		MinWidth:             r.MinWidth,
		MinHeight:            r.MinHeight,
		MinBitrateByCodec:    minBitrate,
		PreferredVideoCodecs: videoCodecs,
		PreferredAudioCodecs: audioCodecs,
		AllowSoftwareHEVC:    r.AllowSoftwareHEVC,
		AudioLanguagePolicy:  langPolicyOrDefault(r.AudioLanguagePolicy),
		AudioLanguages:       r.AudioLanguages,
		TextLanguagePolicy:   langPolicyOrDefault(r.TextLanguagePolicy),
		TextLanguages:        r.TextLanguages,
	}
}

func (r AddItemRequest) toDeviceCapabilities() item.DeviceCapabilities {
	return item.DeviceCapabilities{
		HardwareHEVC: r.Capabilities.HardwareHEVC,
		SoftwareHEVC: r.Capabilities.SoftwareHEVC,
		AC3:          r.Capabilities.AC3,
		EAC3:         r.Capabilities.EAC3,
	}
}
