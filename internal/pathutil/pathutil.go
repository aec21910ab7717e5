// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pathutil derives and confines the on-disk paths this module
// writes to: item roots, per-task destination files, and rewritten
// playlists.
package pathutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// TaskType names one of the four on-disk subdirectories a download task's
// destination lives under.
type TaskType string

const (
	TaskTypeVideo TaskType = "video"
	TaskTypeAudio TaskType = "audio"
	TaskTypeText  TaskType = "text"
	TaskTypeKey   TaskType = "key"
)

// SafeItemID percent-encodes id for use as a single path segment (the
// URL-host-allowed character set). If id cannot be represented that way,
// its MD5 hex digest is returned instead, so every item id maps to exactly
// one filesystem-safe, collision-resistant directory name.
func SafeItemID(id string) string {
	if id == "" {
		return md5Hex(id)
	}
	encoded := url.PathEscape(id)
	if encoded == "" || strings.ContainsAny(encoded, "/\\") {
		return md5Hex(id)
	}
	return encoded
}

// TaskDestination derives a task's destination path: the path is fully
// determined by (type, MD5-hex(sourceURL), extension) so the planner and
// the rewriter always agree on it independently. The final join against
// itemRoot goes through ConfineJoin because the trailing extension is
// still playlist-content-derived (extensionOf reads it from sourceURL);
// the MD5 component never escapes itemRoot on its own, but the extension
// is origin-controlled text appended right next to it.
func TaskDestination(itemRoot string, taskType TaskType, sourceURL string) (string, error) {
	rel := filepath.Join(string(taskType), md5Hex(sourceURL)+extensionOf(sourceURL))
	return ConfineJoin(itemRoot, rel)
}

// RelativeDestination is TaskDestination's path as it is referenced from
// another file in the same item root, e.g. "video/<md5>.<ext>" or, for a
// media-playlist's key reference, "../key/<md5>.<ext>".
func RelativeDestination(taskType TaskType, sourceURL string) string {
	return string(taskType) + "/" + md5Hex(sourceURL) + extensionOf(sourceURL)
}

// Filename is TaskDestination's basename alone: "<md5>.<ext>", used by the
// rewriter for same-directory relative references (a rewritten media
// playlist referencing its own segments from within its own type directory).
func Filename(sourceURL string) string {
	return md5Hex(sourceURL) + extensionOf(sourceURL)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// extensionOf returns the source URL's file extension (including the
// leading dot), or the empty string if it has none. Query strings and
// fragments are stripped before inspection.
func extensionOf(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	ext := filepath.Ext(p)
	if ext == "." {
		return ""
	}
	return ext
}

// ConfineJoin safely joins root with a relative path component, rejecting
// absolute paths and traversal outside root. TaskDestination uses it for
// the final join against an item's root directory, since the filename it
// builds still carries an extension read from playlist/source content.
func ConfineJoin(root, rel string) (string, error) {
	cleaned := filepath.Clean(rel)

	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute paths are not allowed: %q", rel)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %q", rel)
	}

	full := filepath.Join(root, cleaned)

	rootClean := filepath.Clean(root) + string(filepath.Separator)
	fullClean := filepath.Clean(full) + string(filepath.Separator)
	if !strings.HasPrefix(fullClean, rootClean) {
		return "", fmt.Errorf("path escapes root directory: %q", rel)
	}

	return full, nil
}
