// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rewriter emits the localized master and media playlists that
// reference the on-disk layout the planner's destinations define. Every
// path it writes is derived the same way the planner derives its task
// destinations, so the two never disagree.
package rewriter

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/playkit/dtg/internal/m3u8/playlist"
	"github.com/playkit/dtg/internal/pathutil"
)

// SelectedMedia is the localized form of a playlist
// rendition the rewriter emits into the master: the original rendition plus
// its relative on-disk URI.
type SelectedMedia struct {
	Rendition playlist.Rendition
	RelURI    string
}

// MasterInput is everything needed to emit a localized master playlist.
type MasterInput struct {
	SessionKeyLines []string
	Video           playlist.Variant
	VideoRelURI     string
	Audio           []SelectedMedia
	Text            []SelectedMedia
}

// WriteMaster renders a localized master playlist referencing only the
// selected streams.
func WriteMaster(in MasterInput) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, line := range in.SessionKeyLines {
		b.WriteString(strings.TrimRight(line, "\r\n"))
		b.WriteByte('\n')
	}

	var attrs []string
	attrs = append(attrs, fmt.Sprintf("BANDWIDTH=%d", in.Video.Bandwidth))
	if in.Video.Width > 0 && in.Video.Height > 0 {
		attrs = append(attrs, fmt.Sprintf("RESOLUTION=%dx%d", in.Video.Width, in.Video.Height))
	}
	if len(in.Audio) > 0 && in.Video.AudioGroup != "" {
		attrs = append(attrs, fmt.Sprintf("AUDIO=%q", in.Video.AudioGroup))
	}
	if len(in.Text) > 0 && in.Video.SubtitlesGroup != "" {
		attrs = append(attrs, fmt.Sprintf("SUBTITLES=%q", in.Video.SubtitlesGroup))
	}
	if len(in.Video.Codecs) > 0 {
		attrs = append(attrs, fmt.Sprintf("CODECS=%q", strings.Join(in.Video.Codecs, ",")))
	}
	fmt.Fprintf(&b, "#EXT-X-STREAM-INF:%s\n", strings.Join(attrs, ","))
	b.WriteString(in.VideoRelURI)
	b.WriteByte('\n')

	for _, a := range in.Audio {
		writeMediaTag(&b, playlist.RenditionAudio, a)
	}
	for _, tx := range in.Text {
		writeMediaTag(&b, playlist.RenditionSubtitles, tx)
	}

	return b.String()
}

func writeMediaTag(b *strings.Builder, typ playlist.RenditionType, sm SelectedMedia) {
	r := sm.Rendition
	var attrs []string
	attrs = append(attrs, fmt.Sprintf("TYPE=%s", typ))
	attrs = append(attrs, fmt.Sprintf("GROUP-ID=%q", r.GroupID))
	attrs = append(attrs, fmt.Sprintf("NAME=%q", r.Name))
	if r.Language != "" {
		attrs = append(attrs, fmt.Sprintf("LANGUAGE=%q", r.Language))
	}
	attrs = append(attrs, fmt.Sprintf("DEFAULT=%s", yesNo(r.Default)))
	attrs = append(attrs, fmt.Sprintf("AUTOSELECT=%s", yesNo(r.Autoselect)))
	if typ == playlist.RenditionSubtitles {
		attrs = append(attrs, fmt.Sprintf("FORCED=%s", yesNo(r.Forced)))
	}
	if r.Bandwidth > 0 {
		attrs = append(attrs, fmt.Sprintf("BANDWIDTH=%d", r.Bandwidth))
	}
	attrs = append(attrs, fmt.Sprintf("URI=%q", sm.RelURI))
	fmt.Fprintf(b, "#EXT-X-MEDIA:%s\n", strings.Join(attrs, ","))
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// WriteMedia rewrites one stream's raw media playlist text line-by-line:
// segment URIs and the init map URI become same-directory "<md5>.<ext>"
// references; AES-128 key URIs become "../key/<md5>.<ext>" references; every
// other line is preserved verbatim; blank lines are dropped. baseURL is the
// original playlist's own URL, used to resolve relative references the same
// way the parser did.
func WriteMedia(rawText string, baseURL *url.URL) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(rawText))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#EXT-X-MAP:"):
			rewritten, err := rewriteURITag(trimmed, baseURL, "")
			if err != nil {
				return "", err
			}
			out.WriteString(rewritten)
			out.WriteByte('\n')

		case strings.HasPrefix(trimmed, "#EXT-X-KEY:"):
			if isAES128Line(trimmed) {
				rewritten, err := rewriteURITag(trimmed, baseURL, "../"+string(pathutil.TaskTypeKey)+"/")
				if err != nil {
					return "", err
				}
				out.WriteString(rewritten)
			} else {
				out.WriteString(trimmed)
			}
			out.WriteByte('\n')

		case strings.HasPrefix(trimmed, "#"):
			out.WriteString(trimmed)
			out.WriteByte('\n')

		default:
			abs, err := resolve(baseURL, trimmed)
			if err != nil {
				return "", err
			}
			out.WriteString(pathutil.Filename(abs))
			out.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func resolve(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}
	return base.ResolveReference(refURL).String(), nil
}

// rewriteURITag replaces a tag line's URI="..." attribute with the
// resolved-and-localized reference, prefixing it with dirPrefix (empty for
// a same-directory reference, "../key/" for a key reference).
func rewriteURITag(line string, base *url.URL, dirPrefix string) (string, error) {
	const marker = `URI="`
	idx := strings.Index(line, marker)
	if idx == -1 {
		return line, nil
	}
	start := idx + len(marker)
	end := strings.Index(line[start:], `"`)
	if end == -1 {
		return "", fmt.Errorf("unterminated URI attribute in tag: %s", line)
	}
	end += start

	abs, err := resolve(base, line[start:end])
	if err != nil {
		return "", err
	}
	return line[:start] + dirPrefix + pathutil.Filename(abs) + line[end:], nil
}

// isAES128Line reports whether an #EXT-X-KEY line must be rewritten to a
// local key path rather than left pointing at the origin. It mirrors
// playlist.KeyTag.IsAES128(): a missing KEYFORMAT or an explicit
// KEYFORMAT="identity" both mean plain AES-128, while any other keyformat
// (FairPlay, Widevine, PlayReady) is preserved verbatim.
func isAES128Line(line string) bool {
	if !strings.Contains(line, "METHOD=AES-128") {
		return false
	}
	keyformat, ok := attrValue(line, "KEYFORMAT")
	if !ok {
		return true
	}
	return keyformat == "" || keyformat == "identity"
}

// attrValue extracts a quoted ATTR="value" pair from a tag line.
func attrValue(line, attr string) (string, bool) {
	marker := attr + `="`
	idx := strings.Index(line, marker)
	if idx == -1 {
		return "", false
	}
	start := idx + len(marker)
	end := strings.Index(line[start:], `"`)
	if end == -1 {
		return "", false
	}
	return line[start : start+end], true
}
