package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/services/kv"
)

// VariableService is the subset of the variable service used by KVHandler
type VariableService interface {
	GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error)
	Set(ctx context.Context, key string, value string, description string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]interfaces.KeyValuePair, error)
}

// KVHandler serves the variables held in the key/value store. Values are always
// masked in responses since they are usually credentials.
type KVHandler struct {
	variables VariableService
	logger    arbor.ILogger
}

// VariableResponse is the masked view of a stored variable
type VariableResponse struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type setVariableRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value" validate:"required"`
	Description string `json:"description" validate:"max=256"`
}

// NewKVHandler creates a new KV handler for managing variables
func NewKVHandler(variables VariableService, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		variables: variables,
		logger:    logger,
	}
}

// ListKVHandler handles GET /api/kv
func (h *KVHandler) ListKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pairs, err := h.variables.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list variables")
		return
	}

	response := make([]VariableResponse, len(pairs))
	for i := range pairs {
		response[i] = maskedPair(&pairs[i])
	}
	WriteJSON(w, http.StatusOK, response)
}

// CreateKVHandler handles POST /api/kv {key, value, description}
func (h *KVHandler) CreateKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req setVariableRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		WriteError(w, http.StatusBadRequest, "Key is required")
		return
	}

	if _, err := h.variables.GetPair(r.Context(), req.Key); err == nil {
		WriteError(w, http.StatusConflict, "A variable with this key already exists. Key names are case-insensitive.")
		return
	}

	h.set(w, r, req.Key, req)
}

// GetKVHandler handles GET /api/kv/{key}
func (h *KVHandler) GetKVHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromPath(w, r)
	if !ok {
		return
	}

	pair, err := h.variables.GetPair(r.Context(), key)
	if err != nil {
		h.writeVariableError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, maskedPair(pair))
}

// UpdateKVHandler handles PUT /api/kv/{key} {value, description}. Missing keys are created.
func (h *KVHandler) UpdateKVHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromPath(w, r)
	if !ok {
		return
	}

	var req setVariableRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.set(w, r, key, req)
}

// DeleteKVHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteKVHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromPath(w, r)
	if !ok {
		return
	}

	if err := h.variables.Delete(r.Context(), key); err != nil {
		h.writeVariableError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KVHandler) set(w http.ResponseWriter, r *http.Request, key string, req setVariableRequest) {
	created, err := h.variables.Set(r.Context(), key, req.Value, req.Description)
	if err != nil {
		h.writeVariableError(w, err)
		return
	}

	pair, err := h.variables.GetPair(r.Context(), key)
	if err != nil {
		h.writeVariableError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, maskedPair(pair))
}

func (h *KVHandler) writeVariableError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrKeyNotFound):
		WriteError(w, http.StatusNotFound, "Variable not found")
	case errors.Is(err, kv.ErrReservedKey):
		WriteError(w, http.StatusForbidden, "Variable is reserved")
	default:
		h.logger.Error().Err(err).Msg("Variable operation failed")
		WriteError(w, http.StatusInternalServerError, "Variable operation failed")
	}
}

// keyFromPath extracts and unescapes the key of /api/kv/{key}
func keyFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/kv/"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return "", false
	}
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return "", false
	}
	return key, true
}

func maskedPair(pair *interfaces.KeyValuePair) VariableResponse {
	return VariableResponse{
		Key:         pair.Key,
		Value:       MaskValue(pair.Value),
		Description: pair.Description,
		CreatedAt:   pair.CreatedAt,
		UpdatedAt:   pair.UpdatedAt,
	}
}

// MaskValue hides all but the first and last four characters of value.
// Values shorter than 12 characters are fully masked.
func MaskValue(value string) string {
	if len(value) < 12 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
