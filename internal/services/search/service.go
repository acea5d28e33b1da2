// Package search holds the search session: the debounced query pipeline, the
// selected place and the history panel state.
package search

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

const (
	alertTitle          = "Error"
	searchFailedMessage = "Failed to search places"
	detailFailedMessage = "Failed to get place details"
)

// Service implements interfaces.SearchSession
type Service struct {
	places  interfaces.PlacesService
	history interfaces.HistoryService
	events  interfaces.EventService
	logger  arbor.ILogger

	minQueryLength int
	debouncer      *common.Debouncer
	origin         models.LatLng
	hasOrigin      bool

	// ctx is the parent of every debounced search; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	results      []models.AutocompletePrediction
	selected     *models.Place
	recent       []models.Place
	searching    bool
	showHistory  bool
	version      uint64
	generation   uint64
	cancelSearch context.CancelFunc
}

// NewService creates a search session
func NewService(
	places interfaces.PlacesService,
	history interfaces.HistoryService,
	events interfaces.EventService,
	config *common.SearchConfig,
	logger arbor.ILogger,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		places:         places,
		history:        history,
		events:         events,
		logger:         logger,
		minQueryLength: config.MinQueryLength,
		debouncer:      common.NewDebouncer(config.DebounceInterval),
		ctx:            ctx,
		cancel:         cancel,
		results:        []models.AutocompletePrediction{},
		recent:         []models.Place{},
	}

	if common.IsValidCoordinate(config.OriginLatitude, config.OriginLongitude) {
		s.origin = models.LatLng{Lat: config.OriginLatitude, Lng: config.OriginLongitude}
		s.hasOrigin = true
	}

	return s
}

// Snapshot returns a copy of the current session state
func (s *Service) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// HandleSearch records a text-input change. The history panel is hidden at once;
// short queries clear the results without a remote call, longer ones are searched
// after the quiet period.
func (s *Service) HandleSearch(query string) {
	s.mu.Lock()
	s.debouncer.Cancel()
	s.abortSearchLocked()
	s.showHistory = false

	if utf8.RuneCountInString(query) < s.minQueryLength {
		s.results = []models.AutocompletePrediction{}
		snapshot := s.commitLocked()
		s.mu.Unlock()

		s.logger.Debug().Int("length", utf8.RuneCountInString(query)).Msg("Query below minimum length, results cleared")
		s.publishSnapshot(snapshot)
		return
	}

	generation := s.generation
	s.debouncer.Trigger(func() {
		s.runSearch(generation, query)
	})
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)
}

// runSearch is the debounced half of HandleSearch. A search superseded by newer
// input is cancelled and its outcome discarded.
func (s *Service) runSearch(generation uint64, query string) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelSearch = cancel
	s.searching = true
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)

	s.logger.Debug().Str("query", query).Msg("Searching places")
	predictions, err := s.places.SearchPlaces(ctx, query)
	cancel()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Str("query", query).Msg("Discarding superseded search")
		return
	}
	s.cancelSearch = nil
	s.searching = false
	if err == nil {
		if predictions == nil {
			predictions = []models.AutocompletePrediction{}
		}
		s.results = predictions
	}
	snapshot = s.commitLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("Error searching places")
		s.publishAlert(searchFailedMessage, err)
	} else {
		s.logger.Debug().Str("query", query).Int("results", len(predictions)).Msg("Search completed")
	}
	s.publishSnapshot(snapshot)
}

// SelectPrediction resolves a prediction into a place and selects it. The place is
// then saved to history; a failed save is logged and does not undo the selection.
// On a failed lookup an alert is published and the selection is left unchanged.
func (s *Service) SelectPrediction(ctx context.Context, prediction models.AutocompletePrediction) (*models.Place, error) {
	place, err := s.places.GetPlaceDetails(ctx, prediction.PlaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("place_id", prediction.PlaceID).Msg("Error getting place details")
		s.publishAlert(detailFailedMessage, err)
		return nil, err
	}

	s.selectPlace(*place)

	// the selection is done; a caller going away must not drop its history entry
	persistCtx := context.WithoutCancel(ctx)
	if err := s.history.SaveToHistory(persistCtx, *place); err != nil {
		s.logger.Warn().Err(err).Str("place_id", place.PlaceID).Msg("Failed to save place to history")
	}
	s.LoadHistory(persistCtx)

	selected := *place
	return &selected, nil
}

// SelectHistoryEntry selects a stored place without any remote call
func (s *Service) SelectHistoryEntry(place models.Place) {
	s.selectPlace(place)
}

func (s *Service) selectPlace(place models.Place) {
	s.mu.Lock()
	s.debouncer.Cancel()
	s.abortSearchLocked()
	s.selected = &place
	s.results = []models.AutocompletePrediction{}
	s.showHistory = false
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info().Str("place_id", place.PlaceID).Str("name", place.Name).Msg("Place selected")
	s.publishSnapshot(snapshot)
}

// ToggleHistory flips the history panel and always clears the result list
func (s *Service) ToggleHistory() {
	s.mu.Lock()
	s.showHistory = !s.showHistory
	s.results = []models.AutocompletePrediction{}
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)
}

// SetHistoryVisible shows or hides the history panel directly
func (s *Service) SetHistoryVisible(visible bool) {
	s.mu.Lock()
	s.showHistory = visible
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)
}

// LoadHistory replaces the in-memory history with the stored list
func (s *Service) LoadHistory(ctx context.Context) {
	history := s.history.GetHistory(ctx)

	s.mu.Lock()
	s.recent = history
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)
}

// ClearHistory removes the stored history and hides the panel
func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.history.ClearHistory(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error clearing history")
		return err
	}

	s.mu.Lock()
	s.recent = []models.Place{}
	s.showHistory = false
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publish(interfaces.Event{Type: interfaces.EventHistoryCleared})
	s.publishSnapshot(snapshot)
	return nil
}

// ClearSelection drops the selected place
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.publishSnapshot(snapshot)
}

// Close cancels any pending or running search
func (s *Service) Close() {
	s.debouncer.Stop()
	s.cancel()

	s.mu.Lock()
	s.abortSearchLocked()
	s.mu.Unlock()
}

// abortSearchLocked invalidates the scheduled or running search. Caller holds s.mu.
func (s *Service) abortSearchLocked() {
	s.generation++
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.searching = false
}

// commitLocked bumps the version and returns the new snapshot. Caller holds s.mu.
func (s *Service) commitLocked() models.SessionSnapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Service) publishSnapshot(snapshot models.SessionSnapshot) {
	s.publish(interfaces.Event{Type: interfaces.EventSessionUpdated, Payload: snapshot})
}

func (s *Service) publishAlert(message string, cause error) {
	alert := interfaces.AlertPayload{Title: alertTitle, Message: message}
	if cause != nil {
		alert.Cause = cause.Error()
	}
	s.publish(interfaces.Event{Type: interfaces.EventAlert, Payload: alert})
}

func (s *Service) publish(event interfaces.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), event); err != nil {
		s.logger.Debug().Err(err).Str("event_type", string(event.Type)).Msg("Failed to publish event")
	}
}
