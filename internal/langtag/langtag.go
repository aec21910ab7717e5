// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package langtag canonicalizes BCP-47 language tags and implements the
// rendition-selector's audio/text language admission policy.
package langtag

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Policy selects which renditions a caller admits by declared language.
type Policy string

const (
	// PolicyAll admits every rendition regardless of language.
	PolicyAll Policy = "all"
	// PolicyNone admits no rendition with a declared language (the group is
	// skipped entirely unless a rendition declares no language at all).
	PolicyNone Policy = "none"
	// PolicyExplicit admits only renditions whose canonicalized tag matches
	// one of an explicit list.
	PolicyExplicit Policy = "explicit"
)

// token trims Unicode whitespace and invisible edge characters and
// lowercases, for case-insensitive comparisons of raw tag text.
func token(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '​' || // zero width space
			r == '‌' || // zero width non-joiner
			r == '‍' || // zero width joiner
			r == '﻿' // BOM / zero width no-break space
	}))
}

// Canonicalize normalizes a raw BCP-47 tag (e.g. "EN-us", " en_US ") to its
// canonical form (e.g. "en-US"). An empty or unparsable tag canonicalizes to
// the empty string, which callers must treat as "no declared language".
func Canonicalize(raw string) string {
	t := token(raw)
	if t == "" {
		return ""
	}
	// HLS commonly uses underscores where BCP-47 expects hyphens.
	t = strings.ReplaceAll(t, "_", "-")
	tag, err := language.Parse(t)
	if err != nil {
		return ""
	}
	return tag.String()
}

// Matches reports whether a rendition's declared language (possibly empty,
// meaning undeclared) is admitted under policy against the explicit allow
// list. A rendition with no declared language always matches, regardless of
// policy: an EXT-X-MEDIA entry without a LANGUAGE attribute carries no
// signal to filter on, so excluding it would silently drop content the
// policy was never meant to reach.
func Matches(policy Policy, allow []string, declared string) bool {
	canon := Canonicalize(declared)
	if canon == "" {
		return true
	}
	switch policy {
	case PolicyAll:
		return true
	case PolicyNone:
		return false
	case PolicyExplicit:
		base, _ := language.Make(canon).Base()
		for _, a := range allow {
			ca := Canonicalize(a)
			if ca == "" {
				continue
			}
			if ca == canon {
				return true
			}
			if ab, _ := language.Make(ca).Base(); ab == base {
				return true
			}
		}
		return false
	default:
		return false
	}
}
