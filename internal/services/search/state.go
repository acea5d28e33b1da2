package search

import (
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/models"
)

// deriveState maps the session flags onto the explicit state. A running search wins,
// then the history panel, then the result list, then the detail panel.
func deriveState(searching, showHistory bool, results int, selected *models.Place) models.SessionState {
	switch {
	case searching:
		return models.StateSearching
	case showHistory:
		return models.StateHistory
	case results > 0:
		return models.StateResults
	case selected != nil:
		return models.StateDetail
	default:
		return models.StateIdle
	}
}

// snapshotLocked copies the session state. Caller holds s.mu.
func (s *Service) snapshotLocked() models.SessionSnapshot {
	results := make([]models.AutocompletePrediction, len(s.results))
	copy(results, s.results)
	history := make([]models.Place, len(s.recent))
	copy(history, s.recent)

	var selected *models.Place
	if s.selected != nil {
		place := *s.selected
		selected = &place
	}

	snapshot := models.SessionSnapshot{
		Version:     s.version,
		State:       deriveState(s.searching, s.showHistory, len(results), selected),
		Results:     results,
		Selected:    selected,
		History:     history,
		IsSearching: s.searching,
		ShowHistory: s.showHistory,
		Region:      common.RegionFor(selected),
	}

	if loc, ok := selected.Location(); ok && common.IsValidCoordinate(loc.Lat, loc.Lng) && s.hasOrigin {
		snapshot.Distance = common.FormatDistance(common.DistanceMeters(s.origin, loc))
	}

	return snapshot
}
