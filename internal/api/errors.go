// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/log"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps a Manager error onto an HTTP status and a small JSON
// body, so a caller can branch on the "error" field the way this module's
// own code branches on dtgerr sentinels with errors.Is.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).
			Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}

func classify(err error) (status int, code string) {
	switch {
	case errors.Is(err, dtgerr.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, dtgerr.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, dtgerr.ErrMalformedPlaylist), errors.Is(err, dtgerr.ErrUnknownPlaylistType):
		return http.StatusUnprocessableEntity, "malformed_playlist"
	case errors.Is(err, dtgerr.ErrNetworkTimeout), errors.Is(err, dtgerr.ErrHTTPFailure):
		return http.StatusBadGateway, "upstream_fetch_failed"
	case errors.Is(err, dtgerr.ErrDBFailure), errors.Is(err, dtgerr.ErrInvalidInternalState):
		return http.StatusInternalServerError, "internal_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
