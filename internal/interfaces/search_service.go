package interfaces

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// SearchSession is the surface a presentation layer consumes: the current state
// plus the handlers that drive it.
type SearchSession interface {
	Snapshot() models.SessionSnapshot

	// HandleSearch records a text-input change; the remote search is debounced
	HandleSearch(query string)

	// SelectPrediction resolves a prediction and makes it the selected place
	SelectPrediction(ctx context.Context, prediction models.AutocompletePrediction) (*models.Place, error)

	// SelectHistoryEntry selects a stored place without any network call
	SelectHistoryEntry(place models.Place)

	ToggleHistory()
	SetHistoryVisible(visible bool)

	LoadHistory(ctx context.Context)
	ClearHistory(ctx context.Context) error
	ClearSelection()
}
