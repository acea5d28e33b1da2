package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/placefinder/internal/models"
)

// PlacesService defines the remote places operations used by the search session
type PlacesService interface {
	// SearchPlaces returns autocomplete predictions for a query.
	// Callers are expected to filter out queries below the minimum length.
	// Any failure is reported as *RemoteQueryError.
	SearchPlaces(ctx context.Context, query string) ([]models.AutocompletePrediction, error)

	// GetPlaceDetails resolves a place id into a full Place.
	// The returned place always carries a place id, falling back to placeID.
	// Any failure is reported as *RemoteQueryError.
	GetPlaceDetails(ctx context.Context, placeID string) (*models.Place, error)
}

// RemoteQueryError is returned when the remote places service rejects a request
// (non-OK status) or cannot be reached.
type RemoteQueryError struct {
	Op      string // "search" or "details"
	Status  string // remote status, empty for transport faults
	Message string
	Err     error
}

func (e *RemoteQueryError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("places %s: %s (status: %s)", e.Op, e.Message, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("places %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("places %s: %s", e.Op, e.Message)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Err
}
