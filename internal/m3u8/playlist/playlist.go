// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playlist tokenizes an HLS master or media playlist into a typed
// representation: one pass over the text, explicit tag dispatch, strict
// errors on malformed attribute lines. Relative URIs are resolved against
// the playlist's own URL as they are encountered, so every URI the caller
// sees back is already absolute.
package playlist

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/playkit/dtg/internal/dtgerr"
)

// RenditionType is the TYPE attribute of an #EXT-X-MEDIA tag this package
// understands. CLOSED-CAPTIONS and VIDEO media-group entries are parsed but
// otherwise ignored: this module never fetches closed captions, and a VIDEO
// #EXT-X-MEDIA entry without its own URI carries no fetchable content.
type RenditionType string

const (
	RenditionAudio     RenditionType = "AUDIO"
	RenditionSubtitles RenditionType = "SUBTITLES"
)

// Variant is one #EXT-X-STREAM-INF entry: a selectable video rendition.
type Variant struct {
	Bandwidth      int
	Width          int
	Height         int
	Codecs         []string
	AudioGroup     string
	SubtitlesGroup string
	URI            string // absolute
}

// HasCodecPrefix reports whether any declared codec starts with prefix,
// case-insensitively (e.g. "hvc1"/"hev1" for HEVC, "avc1" for H.264).
func (v Variant) HasCodecPrefix(prefix string) bool {
	for _, c := range v.Codecs {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Rendition is one #EXT-X-MEDIA entry of type AUDIO or SUBTITLES.
type Rendition struct {
	Type       RenditionType
	GroupID    string
	Language   string
	Name       string
	Default    bool
	Autoselect bool
	Forced     bool
	Bandwidth  int    // 0 if not declared
	URI        string // absolute; empty for a group member with no URI
}

// Master is a parsed master playlist.
type Master struct {
	Variants []Variant
	Media    []Rendition
	// SessionKeyLines preserves #EXT-X-SESSION-KEY tags declaring the
	// FairPlay key format verbatim, for reinjection into the rewritten
	// master. FairPlay session keys are never fetched.
	SessionKeyLines []string
}

// Segment is one media-playlist segment: its URI and #EXTINF duration.
type Segment struct {
	URI      string // absolute
	Duration float64
}

// KeyTag is an #EXT-X-KEY tag captured from a media playlist.
type KeyTag struct {
	Method    string
	URI       string // absolute, empty for METHOD=NONE
	IV        string
	Keyformat string
}

// IsAES128 reports whether this key must be fetched as a plain AES-128 key
// (the default HLS key format, or an explicit "identity" keyformat) rather
// than preserved verbatim as a FairPlay or other DRM reference.
func (k KeyTag) IsAES128() bool {
	if k.Method != "AES-128" {
		return false
	}
	return k.Keyformat == "" || k.Keyformat == "identity"
}

// MediaPlaylist is a parsed media (rendition) playlist.
type MediaPlaylist struct {
	Segments []Segment
	Keys     []KeyTag
	MapURI   string // absolute, empty if no #EXT-X-MAP
}

// TotalDuration sums every segment's #EXTINF value, in seconds.
func (mp MediaPlaylist) TotalDuration() float64 {
	var total float64
	for _, s := range mp.Segments {
		total += s.Duration
	}
	return total
}

// ParseMaster parses master playlist text. playlistURL is the playlist's
// own absolute URL, used to resolve every relative URI encountered.
func ParseMaster(data string, playlistURL *url.URL) (*Master, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var m Master
	sawHeader := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "#EXTM3U":
			sawHeader = true

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			attrs, err := parseAttributes(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			if !scanner.Scan() {
				return nil, malformed(playlistURL, fmt.Errorf("#EXT-X-STREAM-INF without a following URI"))
			}
			uriLine := strings.TrimSpace(scanner.Text())
			if uriLine == "" {
				return nil, malformed(playlistURL, fmt.Errorf("#EXT-X-STREAM-INF followed by a blank line"))
			}
			resolved, err := resolveURI(playlistURL, uriLine)
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			v := Variant{
				Bandwidth:      atoiOr(attrs["BANDWIDTH"], 0),
				Codecs:         splitCodecs(attrs["CODECS"]),
				AudioGroup:     attrs["AUDIO"],
				SubtitlesGroup: attrs["SUBTITLES"],
				URI:            resolved,
			}
			if res, ok := attrs["RESOLUTION"]; ok {
				w, h, err := parseResolution(res)
				if err != nil {
					return nil, malformed(playlistURL, err)
				}
				v.Width, v.Height = w, h
			}
			m.Variants = append(m.Variants, v)

		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			attrs, err := parseAttributes(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			typ := RenditionType(attrs["TYPE"])
			if typ != RenditionAudio && typ != RenditionSubtitles {
				continue
			}
			r := Rendition{
				Type:       typ,
				GroupID:    attrs["GROUP-ID"],
				Language:   attrs["LANGUAGE"],
				Name:       attrs["NAME"],
				Default:    attrs["DEFAULT"] == "YES",
				Autoselect: attrs["AUTOSELECT"] == "YES",
				Forced:     attrs["FORCED"] == "YES",
				Bandwidth:  atoiOr(attrs["BANDWIDTH"], 0),
			}
			if uri, ok := attrs["URI"]; ok && uri != "" {
				resolved, err := resolveURI(playlistURL, uri)
				if err != nil {
					return nil, malformed(playlistURL, err)
				}
				r.URI = resolved
			}
			m.Media = append(m.Media, r)

		case strings.HasPrefix(line, "#EXT-X-SESSION-KEY:"):
			attrs, err := parseAttributes(strings.TrimPrefix(line, "#EXT-X-SESSION-KEY:"))
			if err == nil && attrs["KEYFORMAT"] == "com.apple.streamingkeydelivery" {
				m.SessionKeyLines = append(m.SessionKeyLines, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed(playlistURL, err)
	}
	if !sawHeader {
		return nil, &dtgerr.MalformedPlaylistError{URL: urlString(playlistURL), Err: fmt.Errorf("missing #EXTM3U header")}
	}
	if len(m.Variants) == 0 {
		return nil, &dtgerr.MalformedPlaylistError{URL: urlString(playlistURL), Err: fmt.Errorf("no #EXT-X-STREAM-INF variants found")}
	}
	return &m, nil
}

// ParseMedia parses media (rendition) playlist text.
func ParseMedia(data string, playlistURL *url.URL) (*MediaPlaylist, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var mp MediaPlaylist
	sawHeader := false
	var nextDuration float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "#EXTM3U":
			sawHeader = true

		case strings.HasPrefix(line, "#EXTINF:"):
			durPart := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durPart, ","); idx != -1 {
				durPart = durPart[:idx]
			}
			d, err := strconv.ParseFloat(strings.TrimSpace(durPart), 64)
			if err != nil {
				return nil, malformed(playlistURL, fmt.Errorf("invalid #EXTINF duration %q: %w", durPart, err))
			}
			nextDuration = d

		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			attrs, err := parseAttributes(strings.TrimPrefix(line, "#EXT-X-KEY:"))
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			kt := KeyTag{
				Method:    attrs["METHOD"],
				IV:        attrs["IV"],
				Keyformat: attrs["KEYFORMAT"],
			}
			if uri, ok := attrs["URI"]; ok && uri != "" {
				resolved, err := resolveURI(playlistURL, uri)
				if err != nil {
					return nil, malformed(playlistURL, err)
				}
				kt.URI = resolved
			}
			mp.Keys = append(mp.Keys, kt)

		case strings.HasPrefix(line, "#EXT-X-MAP:"):
			attrs, err := parseAttributes(strings.TrimPrefix(line, "#EXT-X-MAP:"))
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			if uri, ok := attrs["URI"]; ok && uri != "" {
				resolved, err := resolveURI(playlistURL, uri)
				if err != nil {
					return nil, malformed(playlistURL, err)
				}
				mp.MapURI = resolved
			}

		case !strings.HasPrefix(line, "#"):
			resolved, err := resolveURI(playlistURL, line)
			if err != nil {
				return nil, malformed(playlistURL, err)
			}
			mp.Segments = append(mp.Segments, Segment{URI: resolved, Duration: nextDuration})
			nextDuration = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed(playlistURL, err)
	}
	if !sawHeader {
		return nil, &dtgerr.MalformedPlaylistError{URL: urlString(playlistURL), Err: fmt.Errorf("missing #EXTM3U header")}
	}
	return &mp, nil
}

func malformed(playlistURL *url.URL, err error) error {
	return &dtgerr.MalformedPlaylistError{URL: urlString(playlistURL), Err: err}
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func resolveURI(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", ref, err)
	}
	if base == nil {
		return refURL.String(), nil
	}
	return base.ResolveReference(refURL).String(), nil
}

func splitCodecs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseResolution(raw string) (width, height int, err error) {
	idx := strings.IndexByte(raw, 'x')
	if idx < 0 {
		return 0, 0, fmt.Errorf("invalid RESOLUTION %q", raw)
	}
	w, err := strconv.Atoi(raw[:idx])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid RESOLUTION %q: %w", raw, err)
	}
	h, err := strconv.Atoi(raw[idx+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid RESOLUTION %q: %w", raw, err)
	}
	return w, h, nil
}

func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseAttributes splits a comma-separated HLS attribute list into a map,
// correctly treating commas inside double-quoted values as part of the
// value rather than a separator (e.g. CODECS="avc1.640028,mp4a.40.2").
func parseAttributes(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	i, n := 0, len(s)
	for i < n {
		for i < n && s[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		keyStart := i
		for i < n && s[i] != '=' {
			i++
		}
		if i >= n {
			return nil, fmt.Errorf("malformed attribute list (missing '='): %q", s)
		}
		key := strings.TrimSpace(s[keyStart:i])
		i++ // skip '='

		var val string
		if i < n && s[i] == '"' {
			i++
			valStart := i
			for i < n && s[i] != '"' {
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("unterminated quoted value in attribute list: %q", s)
			}
			val = s[valStart:i]
			i++ // skip closing quote
		} else {
			valStart := i
			for i < n && s[i] != ',' {
				i++
			}
			val = strings.TrimSpace(s[valStart:i])
		}
		if key != "" {
			attrs[key] = val
		}
		for i < n && s[i] != ',' {
			i++
		}
		if i < n {
			i++ // skip comma
		}
	}
	return attrs, nil
}
