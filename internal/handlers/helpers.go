package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

const maxRequestBody = 64 * 1024

var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps a service failure onto an HTTP status:
// remote lookups become 502, local persistence faults 500.
func WriteServiceError(w http.ResponseWriter, err error) error {
	var remoteErr *interfaces.RemoteQueryError
	if errors.As(err, &remoteErr) {
		return WriteJSON(w, http.StatusBadGateway, map[string]string{
			"status":        "error",
			"error":         remoteErr.Message,
			"remote_status": remoteErr.Status,
		})
	}

	var persistErr *interfaces.PersistenceError
	if errors.As(err, &persistErr) {
		return WriteError(w, http.StatusInternalServerError, "Failed to update search history")
	}

	return WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// DecodeJSON reads a bounded JSON body into dst and validates its struct tags.
// On failure a 400 response has already been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return false
	}

	return true
}
