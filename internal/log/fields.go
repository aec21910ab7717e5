// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldItemID        = "item_id"
	FieldTaskID        = "task_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// HLS / rendition fields
	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldBandwidth  = "bandwidth"
	FieldGroupID    = "group_id"
	FieldLanguage   = "language"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldSourceURL    = "source_url"
	FieldPlaylistPath = "playlist_path"
	FieldDestPath     = "dest_path"

	// Transfer fields
	FieldBytesWritten = "bytes_written"
	FieldHTTPStatus   = "http_status"
	FieldAttempt      = "attempt"
	FieldOriginHost   = "origin_host"
)
