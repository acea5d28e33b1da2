package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// SessionHandler exposes the search session over JSON
type SessionHandler struct {
	session interfaces.SearchSession
	logger  arbor.ILogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session interfaces.SearchSession, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		session: session,
		logger:  logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type selectPredictionRequest struct {
	PlaceID     string `json:"place_id" validate:"required"`
	Description string `json:"description"`
}

type selectHistoryRequest struct {
	PlaceID string `json:"place_id" validate:"required"`
}

type historyVisibleRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

// GetSessionHandler returns the current snapshot
func (h *SessionHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// SearchHandler records a text-input change. The remote search runs after the
// quiet period, so the response only reflects the immediate state change.
func (h *SessionHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req searchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	h.session.HandleSearch(req.Query)
	WriteJSON(w, http.StatusAccepted, h.session.Snapshot())
}

// SelectPredictionHandler resolves a prediction and selects it
func (h *SessionHandler) SelectPredictionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req selectPredictionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	prediction, ok := h.session.Snapshot().FindResult(req.PlaceID)
	if !ok {
		prediction = models.AutocompletePrediction{PlaceID: req.PlaceID, Description: req.Description}
	}

	place, err := h.session.SelectPrediction(r.Context(), prediction)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"place":   place,
		"session": h.session.Snapshot(),
	})
}

// SelectHistoryHandler selects a stored place by id without a remote lookup
func (h *SessionHandler) SelectHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req selectHistoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	place, ok := h.session.Snapshot().FindHistoryEntry(req.PlaceID)
	if !ok {
		h.session.LoadHistory(r.Context())
		place, ok = h.session.Snapshot().FindHistoryEntry(req.PlaceID)
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "Place not found in history")
		return
	}

	h.session.SelectHistoryEntry(place)
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// ToggleHistoryHandler flips the history panel
func (h *SessionHandler) ToggleHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.session.ToggleHistory()
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// HistoryVisibleHandler shows or hides the history panel
func (h *SessionHandler) HistoryVisibleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req historyVisibleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	h.session.SetHistoryVisible(*req.Visible)
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// GetHistoryHandler re-reads the stored history and returns it
func (h *SessionHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.session.LoadHistory(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": h.session.Snapshot().History,
	})
}

// ClearHistoryHandler removes the stored history
func (h *SessionHandler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearHistory(r.Context()); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// ClearSelectionHandler drops the selected place
func (h *SessionHandler) ClearSelectionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	h.session.ClearSelection()
	WriteJSON(w, http.StatusOK, h.session.Snapshot())
}
