// Package kv manages the user-provisioned variables held in the key/value store,
// such as the Places API key referenced from configuration.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// ErrReservedKey is returned when a write targets a key owned by another component
var ErrReservedKey = errors.New("key is reserved")

// Service provides business logic for variable operations
type Service struct {
	storage  interfaces.KeyValueStorage
	events   interfaces.EventService
	reserved map[string]bool
	logger   arbor.ILogger
}

// NewService creates a new variable service. Reserved keys can be read but not
// written or deleted through the service.
func NewService(storage interfaces.KeyValueStorage, events interfaces.EventService, logger arbor.ILogger, reserved ...string) *Service {
	s := &Service{
		storage:  storage,
		events:   events,
		reserved: make(map[string]bool, len(reserved)),
		logger:   logger,
	}
	for _, key := range reserved {
		s.reserved[normalizeKey(key)] = true
	}
	return s
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsReserved reports whether key is owned by another component
func (s *Service) IsReserved(key string) bool {
	return s.reserved[normalizeKey(key)]
}

// GetPair retrieves a full KeyValuePair by key
func (s *Service) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	pair, err := s.storage.GetPair(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to get key/value pair")
		}
		return nil, err
	}

	s.logger.Debug().Str("key", key).Msg("Retrieved key/value pair")
	return pair, nil
}

// Set stores or updates a variable and reports whether it was newly created
func (s *Service) Set(ctx context.Context, key string, value string, description string) (bool, error) {
	if normalizeKey(key) == "" {
		return false, fmt.Errorf("key cannot be empty")
	}
	if s.IsReserved(key) {
		return false, fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	_, err := s.storage.GetPair(ctx, key)
	created := errors.Is(err, interfaces.ErrKeyNotFound)

	if err := s.storage.Set(ctx, key, value, description); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to store key/value pair")
		return false, err
	}

	s.logger.Info().Str("key", key).Bool("created", created).Msg("Stored key/value pair")
	s.notify(ctx, interfaces.VariableChange{Key: normalizeKey(key)})
	return created, nil
}

// Delete removes a variable
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.IsReserved(key) {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		}
		return err
	}

	s.logger.Info().Str("key", key).Msg("Deleted key/value pair")
	s.notify(ctx, interfaces.VariableChange{Key: normalizeKey(key), Deleted: true})
	return nil
}

// List returns all variables, excluding reserved keys
func (s *Service) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs, err := s.storage.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		return nil, err
	}

	variables := make([]interfaces.KeyValuePair, 0, len(pairs))
	for _, pair := range pairs {
		if !s.IsReserved(pair.Key) {
			variables = append(variables, pair)
		}
	}

	s.logger.Debug().Int("count", len(variables)).Msg("Listed key/value pairs")
	return variables, nil
}

func (s *Service) notify(ctx context.Context, change interfaces.VariableChange) {
	if s.events == nil {
		return
	}
	// subscribers finish before the write returns, so a rotated key is live for the next request
	event := interfaces.Event{Type: interfaces.EventVariableChanged, Payload: change}
	if err := s.events.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn().Err(err).Str("key", change.Key).Msg("Variable change handler failed")
	}
}
