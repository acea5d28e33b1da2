package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// fakeSession records calls and serves a canned snapshot
type fakeSession struct {
	mu           sync.Mutex
	snapshot     models.SessionSnapshot
	stored       []models.Place
	queries      []string
	selected     []models.AutocompletePrediction
	selectErr    error
	clearErr     error
	toggles      int
	visible      *bool
	historyLoads int
}

func (f *fakeSession) Snapshot() models.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeSession) HandleSearch(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
}

func (f *fakeSession) SelectPrediction(ctx context.Context, prediction models.AutocompletePrediction) (*models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, prediction)
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	place := models.Place{PlaceID: prediction.PlaceID, Name: "Resolved"}
	f.snapshot.Selected = &place
	return &place, nil
}

func (f *fakeSession) SelectHistoryEntry(place models.Place) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.Selected = &place
}

func (f *fakeSession) ToggleHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	f.snapshot.ShowHistory = !f.snapshot.ShowHistory
}

func (f *fakeSession) SetHistoryVisible(visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = &visible
	f.snapshot.ShowHistory = visible
}

func (f *fakeSession) LoadHistory(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyLoads++
	f.snapshot.History = f.stored
}

func (f *fakeSession) ClearHistory(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.stored = nil
	f.snapshot.History = []models.Place{}
	return nil
}

func (f *fakeSession) ClearSelection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.Selected = nil
}

func serve(handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchHandler(t *testing.T) {
	session := &fakeSession{}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.SearchHandler, http.MethodPost, "/api/search", `{"query":"Kar"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"Kar"}, session.queries)

	rec = serve(handler.SearchHandler, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(handler.SearchHandler, http.MethodPost, "/api/search", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(handler.SearchHandler, http.MethodPost, "/api/search", `{"q":"Kar"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestSelectPredictionHandler(t *testing.T) {
	session := &fakeSession{snapshot: models.SessionSnapshot{
		Results: []models.AutocompletePrediction{{PlaceID: "X", Description: "Karachi, Pakistan"}},
	}}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.SelectPredictionHandler, http.MethodPost, "/api/select", `{"place_id":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, session.selected, 1)
	assert.Equal(t, "Karachi, Pakistan", session.selected[0].Description, "prediction is taken from the current results")

	body := decodeBody(t, rec)
	place := body["place"].(map[string]interface{})
	assert.Equal(t, "X", place["place_id"])

	rec = serve(handler.SelectPredictionHandler, http.MethodPost, "/api/select", `{"description":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectPredictionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"remote", &interfaces.RemoteQueryError{Op: "details", Status: "NOT_FOUND", Message: "Failed to get place details"}, http.StatusBadGateway},
		{"persistence", &interfaces.PersistenceError{Op: "save", Key: "search_history", Err: errors.New("disk")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{selectErr: tt.err}
			handler := NewSessionHandler(session, arbor.NewLogger())

			rec := serve(handler.SelectPredictionHandler, http.MethodPost, "/api/select", `{"place_id":"X","description":"Somewhere"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", decodeBody(t, rec)["status"])
			assert.Nil(t, session.snapshot.Selected)
		})
	}
}

func TestSelectHistoryHandler(t *testing.T) {
	session := &fakeSession{stored: []models.Place{{PlaceID: "H1", Name: "Stored"}}}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.SelectHistoryHandler, http.MethodPost, "/api/history/select", `{"place_id":"H1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, session.snapshot.Selected)
	assert.Equal(t, "Stored", session.snapshot.Selected.Name)
	assert.Equal(t, 1, session.historyLoads, "history is reloaded when the entry is not in memory")
	assert.Empty(t, session.selected, "no remote lookup")

	rec = serve(handler.SelectHistoryHandler, http.MethodPost, "/api/history/select", `{"place_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryVisibilityHandlers(t *testing.T) {
	session := &fakeSession{}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.ToggleHistoryHandler, http.MethodPost, "/api/history/toggle", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, session.toggles)
	assert.Equal(t, true, decodeBody(t, rec)["show_history"])

	rec = serve(handler.HistoryVisibleHandler, http.MethodPut, "/api/history/visible", `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, session.visible)
	assert.False(t, *session.visible)

	rec = serve(handler.HistoryVisibleHandler, http.MethodPut, "/api/history/visible", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "visible is required")
}

func TestHistoryHandlers(t *testing.T) {
	session := &fakeSession{stored: []models.Place{{PlaceID: "A"}, {PlaceID: "B"}}}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.GetHistoryHandler, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["history"], 2)

	rec = serve(handler.ClearHistoryHandler, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, session.snapshot.History)

	session.clearErr = &interfaces.PersistenceError{Op: "clear", Key: "search_history", Err: errors.New("locked")}
	rec = serve(handler.ClearHistoryHandler, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionAndSelectionHandlers(t *testing.T) {
	session := &fakeSession{snapshot: models.SessionSnapshot{
		State:    models.StateDetail,
		Selected: &models.Place{PlaceID: "A"},
	}}
	handler := NewSessionHandler(session, arbor.NewLogger())

	rec := serve(handler.GetSessionHandler, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "detail", decodeBody(t, rec)["state"])

	rec = serve(handler.ClearSelectionHandler, http.MethodDelete, "/api/selection", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, session.snapshot.Selected)
}

type fakeKeyStatus bool

func (f fakeKeyStatus) APIKeyConfigured() bool { return bool(f) }

func TestAPIHandler(t *testing.T) {
	session := &fakeSession{snapshot: models.SessionSnapshot{
		Version: 7,
		State:   models.StateHistory,
		History: []models.Place{{PlaceID: "A"}, {PlaceID: "B"}},
	}}
	handler := NewAPIHandler("redis", fakeKeyStatus(true), session, arbor.NewLogger())

	rec := serve(handler.HealthHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "redis", body["storage"])
	assert.Equal(t, true, body["places_key_configured"])
	assert.Equal(t, "history", body["session_state"])
	assert.Equal(t, float64(7), body["session_version"])
	assert.Equal(t, float64(2), body["history_entries"])

	rec = serve(handler.VersionHandler, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Contains(t, body, "version")
	assert.Equal(t, "placefinder", body["service"])
	assert.Equal(t, "redis", body["storage"])

	rec = serve(handler.VersionHandler, http.MethodPost, "/api/version", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIHandler_HealthDegradedWithoutKey(t *testing.T) {
	handler := NewAPIHandler("badger", fakeKeyStatus(false), &fakeSession{}, arbor.NewLogger())

	rec := serve(handler.HealthHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["places_key_configured"])
	assert.Equal(t, float64(0), body["history_entries"])
}
