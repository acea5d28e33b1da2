// Package history persists the recency list of selected places in the key/value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// DefaultMaxEntries bounds the stored list
const DefaultMaxEntries = 50

// DefaultKey is the key the list is stored under
const DefaultKey = "search_history"

// Service implements interfaces.HistoryService on top of a KeyValueStorage
type Service struct {
	storage    interfaces.KeyValueStorage
	key        string
	maxEntries int
	logger     arbor.ILogger

	// mu serialises read-modify-write cycles within this process
	mu sync.Mutex
}

// NewService creates a new history service
func NewService(storage interfaces.KeyValueStorage, config *common.HistoryConfig, logger arbor.ILogger) *Service {
	key := DefaultKey
	maxEntries := DefaultMaxEntries
	if config != nil {
		if config.Key != "" {
			key = config.Key
		}
		if config.MaxEntries > 0 {
			maxEntries = config.MaxEntries
		}
	}

	return &Service{
		storage:    storage,
		key:        key,
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// GetHistory returns the stored list, most recent first. Missing, unreadable or
// undecodable data yields an empty list.
func (s *Service) GetHistory(ctx context.Context) []models.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

func (s *Service) read(ctx context.Context) []models.Place {
	value, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return []models.Place{}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Error retrieving search history")
		return []models.Place{}
	}
	if value == "" {
		return []models.Place{}
	}

	var places []models.Place
	if err := json.Unmarshal([]byte(value), &places); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Error decoding search history")
		return []models.Place{}
	}
	if places == nil {
		places = []models.Place{}
	}
	return places
}

// SaveToHistory moves place to the front of the list. Any earlier entry with the
// same place id is removed and the list is truncated to the maximum size before a
// single write.
func (s *Service) SaveToHistory(ctx context.Context, place models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := Promote(s.read(ctx), place, s.maxEntries)

	data, err := json.Marshal(updated)
	if err != nil {
		return &interfaces.PersistenceError{Op: "encode", Key: s.key, Err: err}
	}

	if err := s.storage.Set(ctx, s.key, string(data), "Recently selected places"); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Error saving search history")
		return &interfaces.PersistenceError{Op: "save", Key: s.key, Err: err}
	}

	s.logger.Debug().
		Str("place_id", place.PlaceID).
		Int("entries", len(updated)).
		Msg("Saved place to search history")
	return nil
}

// ClearHistory removes the stored list. Clearing an empty history succeeds.
func (s *Service) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.storage.Delete(ctx, s.key)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Error clearing search history")
		return &interfaces.PersistenceError{Op: "clear", Key: s.key, Err: err}
	}

	s.logger.Info().Str("key", s.key).Msg("Search history cleared")
	return nil
}

// Promote returns a new list with place at index 0, without any other entry sharing
// its place id, truncated to maxEntries. The input slice is not modified.
func Promote(history []models.Place, place models.Place, maxEntries int) []models.Place {
	updated := make([]models.Place, 0, len(history)+1)
	updated = append(updated, place)
	for _, item := range history {
		if item.PlaceID != place.PlaceID {
			updated = append(updated, item)
		}
	}
	if maxEntries > 0 && len(updated) > maxEntries {
		updated = updated[:maxEntries]
	}
	return updated
}
