package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/services/kv"
)

type fakeVariables struct {
	data   map[string]string
	setErr error
}

func (f *fakeVariables) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	value, ok := f.data[strings.ToLower(key)]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	return &interfaces.KeyValuePair{Key: strings.ToLower(key), Value: value}, nil
}

func (f *fakeVariables) Set(ctx context.Context, key, value, description string) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	_, exists := f.data[strings.ToLower(key)]
	f.data[strings.ToLower(key)] = value
	return !exists, nil
}

func (f *fakeVariables) Delete(ctx context.Context, key string) error {
	if key == "search_history" {
		return kv.ErrReservedKey
	}
	if _, ok := f.data[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *fakeVariables) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs := []interfaces.KeyValuePair{}
	for k, v := range f.data {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func serveKV(handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestKVHandler_ListMasksValues(t *testing.T) {
	h := NewKVHandler(&fakeVariables{data: map[string]string{"google_places_api_key": "AIzaSyExample1234"}}, arbor.NewLogger())

	rec := serveKV(h.ListKVHandler, http.MethodGet, "/api/kv", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []VariableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "AIza...1234", body[0].Value)
	assert.NotContains(t, rec.Body.String(), "AIzaSyExample1234")
}

func TestKVHandler_CreateAndConflict(t *testing.T) {
	h := NewKVHandler(&fakeVariables{data: map[string]string{}}, arbor.NewLogger())

	rec := serveKV(h.CreateKVHandler, http.MethodPost, "/api/kv", `{"key":"Region","value":"sf"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serveKV(h.CreateKVHandler, http.MethodPost, "/api/kv", `{"key":"region","value":"la"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveKV(h.CreateKVHandler, http.MethodPost, "/api/kv", `{"key":"","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveKV(h.CreateKVHandler, http.MethodPost, "/api/kv", `{"key":"empty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKVHandler_UpdateGetDelete(t *testing.T) {
	h := NewKVHandler(&fakeVariables{data: map[string]string{"region": "sf"}}, arbor.NewLogger())

	rec := serveKV(h.UpdateKVHandler, http.MethodPut, "/api/kv/region", `{"value":"la"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveKV(h.GetKVHandler, http.MethodGet, "/api/kv/region", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"********"`)

	rec = serveKV(h.DeleteKVHandler, http.MethodDelete, "/api/kv/region", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serveKV(h.GetKVHandler, http.MethodGet, "/api/kv/region", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveKV(h.DeleteKVHandler, http.MethodDelete, "/api/kv/search_history", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serveKV(h.GetKVHandler, http.MethodGet, "/api/kv/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKVHandler_StorageFailure(t *testing.T) {
	h := NewKVHandler(&fakeVariables{data: map[string]string{}, setErr: errors.New("disk full")}, arbor.NewLogger())

	rec := serveKV(h.UpdateKVHandler, http.MethodPut, "/api/kv/region", `{"value":"la"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "********", MaskValue(""))
	assert.Equal(t, "********", MaskValue("short-value"))
	assert.Equal(t, "abcd...wxyz", MaskValue("abcdefghijklmnopqrstuvwxyz"))
}
