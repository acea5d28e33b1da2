// Package places is the client for the Google Places autocomplete and details endpoints.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"golang.org/x/time/rate"
)

// DetailFields is the fixed field set requested for place details
const DetailFields = "name,formatted_address,geometry,rating,formatted_phone_number,website,opening_hours,types"

const (
	searchFallbackMessage  = "Failed to search places"
	detailsFallbackMessage = "Failed to get place details"
)

// Service implements the PlacesService interface. Each call is a single round trip:
// no retries and no caching.
type Service struct {
	baseURL    string
	keyMu      sync.RWMutex
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// Option configures the Service
type Option func(*Service)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

// NewService creates a new Places service instance
func NewService(config *common.PlacesAPIConfig, apiKey string, logger arbor.ILogger, opts ...Option) *Service {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(config.RateLimit), 1)
	}

	s := &Service{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: limiter,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.apiKey == "" {
		logger.Warn().Msg("Google Places API key is not configured - remote calls will be rejected")
	}

	return s
}

// SetAPIKey replaces the key used for subsequent requests
func (s *Service) SetAPIKey(apiKey string) {
	s.keyMu.Lock()
	s.apiKey = apiKey
	s.keyMu.Unlock()

	if apiKey == "" {
		s.logger.Warn().Msg("Google Places API key cleared - remote calls will be rejected")
		return
	}
	s.logger.Info().Msg("Google Places API key updated")
}

// APIKeyConfigured reports whether requests currently carry an API key
func (s *Service) APIKeyConfigured() bool {
	return s.currentAPIKey() != ""
}

func (s *Service) currentAPIKey() string {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.apiKey
}

// SearchPlaces queries the autocomplete endpoint
func (s *Service) SearchPlaces(ctx context.Context, query string) ([]models.AutocompletePrediction, error) {
	params := url.Values{}
	params.Set("input", query)

	var apiResp AutocompleteResponse
	if err := s.get(ctx, "search", "/autocomplete/json", params, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != StatusOK {
		return nil, s.statusError("search", apiResp.Status, apiResp.ErrorMessage, searchFallbackMessage)
	}

	s.logger.Debug().
		Str("query", query).
		Int("predictions", len(apiResp.Predictions)).
		Msg("Places autocomplete completed")

	return apiResp.Predictions, nil
}

// GetPlaceDetails queries the details endpoint for a fixed field set
func (s *Service) GetPlaceDetails(ctx context.Context, placeID string) (*models.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", DetailFields)

	var apiResp DetailsResponse
	if err := s.get(ctx, "details", "/details/json", params, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != StatusOK {
		return nil, s.statusError("details", apiResp.Status, apiResp.ErrorMessage, detailsFallbackMessage)
	}

	place := apiResp.Result
	if place.PlaceID == "" {
		place.PlaceID = placeID
	}

	s.logger.Debug().
		Str("place_id", place.PlaceID).
		Str("name", place.Name).
		Msg("Places details completed")

	return &place, nil
}

// get performs a GET request and decodes the JSON body into result
func (s *Service) get(ctx context.Context, op, path string, params url.Values, result interface{}) error {
	fallback := searchFallbackMessage
	if op == "details" {
		fallback = detailsFallbackMessage
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return &interfaces.RemoteQueryError{Op: op, Message: fallback, Err: err}
	}

	apiKey := s.currentAPIKey()
	params.Set("key", apiKey)
	fullURL := fmt.Sprintf("%s%s?%s", s.baseURL, path, params.Encode())

	// Redact API key in logs
	params.Del("key")
	s.logger.Debug().
		Str("url", fmt.Sprintf("%s%s?%s&key=***REDACTED***", s.baseURL, path, params.Encode())).
		Msg("Calling Google Places API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &interfaces.RemoteQueryError{Op: op, Message: fallback, Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		err = redact(err, apiKey)
		s.logger.Error().Err(err).Str("op", op).Msg("Google Places request failed")
		return &interfaces.RemoteQueryError{Op: op, Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("op", op).
			Msg("Google Places API returned unexpected HTTP status")
		remoteErr := &interfaces.RemoteQueryError{
			Op:      op,
			Message: fallback,
			Err:     fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
		// error bodies still carry the service's status and message when they are JSON
		var errBody struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"error_message"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			remoteErr.Status = errBody.Status
			if errBody.ErrorMessage != "" {
				remoteErr.Message = errBody.ErrorMessage
			}
		}
		return remoteErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &interfaces.RemoteQueryError{Op: op, Message: fallback, Err: fmt.Errorf("failed to decode API response: %w", err)}
	}

	return nil
}

func (s *Service) statusError(op, status, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	s.logger.Error().
		Str("op", op).
		Str("status", status).
		Str("error_message", message).
		Msg("Google Places API returned non-OK status")
	return &interfaces.RemoteQueryError{Op: op, Status: status, Message: message}
}

// redact strips the API key from transport errors, which embed the request URL
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if apiKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(apiKey), "***REDACTED***")
	return urlErr
}
