package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/placefinder/internal/models"
)

// HistoryService keeps a bounded, deduplicated, most-recent-first list of selected places
type HistoryService interface {
	// GetHistory returns the stored places, most recent first.
	// Read and decode failures yield an empty list rather than an error.
	GetHistory(ctx context.Context) []models.Place

	// SaveToHistory promotes place to the front of the list, dropping any earlier
	// entry with the same place id and truncating to the maximum size.
	SaveToHistory(ctx context.Context, place models.Place) error

	// ClearHistory removes the stored list entirely
	ClearHistory(ctx context.Context) error
}

// PersistenceError is returned when the local key/value store cannot be written
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s (key: %s): %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
