// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/log"
)

// ItemListResponse wraps ListItems' result under an "items" key rather
// than emitting a bare JSON array, so the response body can grow a
// pagination cursor later without breaking existing clients.
type ItemListResponse struct {
	Items []*item.Item `json:"items"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: err.Error()})
		return
	}
	if req.ID == "" || req.SourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: "id and sourceUrl are required"})
		return
	}

	it, err := s.mgr.AddItem(r.Context(), req.ID, req.SourceURL, req.toSelectionOptions(), req.toDeviceCapabilities())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// handleListItems serves GET /items?state=X, or every state concatenated
// when the caller omits the filter (internal/store's query surface is
// per-state only; there is no "all items" store call to delegate to).
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	states := item.AllStates()
	if raw := r.URL.Query().Get("state"); raw != "" {
		state := item.State(raw)
		if !state.IsValid() {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_state", Message: "unknown state filter"})
			return
		}
		states = []item.State{state}
	}

	items := make([]*item.Item, 0)
	for _, state := range states {
		found, err := s.mgr.ListItems(r.Context(), state)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = append(items, found...)
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	it, err := s.mgr.GetItem(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleStartItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	it, err := s.mgr.StartItem(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithComponentFromContext(r.Context(), "api").Info().Str("item_id", itemID).Msg("item start requested")
	writeJSON(w, http.StatusAccepted, it)
}

func (s *Server) handlePauseItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	it, err := s.mgr.PauseItem(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if err := s.mgr.RemoveItem(r.Context(), itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
