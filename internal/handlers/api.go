package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
)

// KeyStatus reports whether the Places client has a key to send
type KeyStatus interface {
	APIKeyConfigured() bool
}

type APIHandler struct {
	storageType string
	places      KeyStatus
	session     SnapshotSource
	logger      arbor.ILogger
}

func NewAPIHandler(storageType string, places KeyStatus, session SnapshotSource, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		storageType: storageType,
		places:      places,
		session:     session,
		logger:      logger,
	}
}

// VersionHandler returns the build and the storage backend in use
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"service":    "placefinder",
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
		"storage":    h.storageType,
	})
}

// HealthHandler reports "degraded" while no Places API key is configured;
// the session still serves history then, but every search fails.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	keyConfigured := h.places.APIKeyConfigured()
	status := "ok"
	if !keyConfigured {
		status = "degraded"
	}

	snapshot := h.session.Snapshot()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":                status,
		"storage":               h.storageType,
		"places_key_configured": keyConfigured,
		"session_state":         snapshot.State,
		"session_version":       snapshot.Version,
		"history_entries":       len(snapshot.History),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
