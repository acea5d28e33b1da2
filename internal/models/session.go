package models

// SessionState is the explicit state of a search session, derived from its fields
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateSearching SessionState = "searching"
	StateResults   SessionState = "results"
	StateHistory   SessionState = "history"
	StateDetail    SessionState = "detail"
)

// MapRegion is the viewport a presenter should show: a center and the span in degrees
type MapRegion struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitude_delta"`
	LongitudeDelta float64 `json:"longitude_delta"`
}

// SessionSnapshot is an immutable copy of the search session handed to presenters
type SessionSnapshot struct {
	Version     uint64                   `json:"version"`
	State       SessionState             `json:"state"`
	Results     []AutocompletePrediction `json:"results"`
	Selected    *Place                   `json:"selected,omitempty"`
	History     []Place                  `json:"history"`
	IsSearching bool                     `json:"is_searching"`
	ShowHistory bool                     `json:"show_history"`
	Region      MapRegion                `json:"region"`
	Distance    string                   `json:"distance,omitempty"` // origin to selected place
}

// FindHistoryEntry returns the history entry with the given place id
func (s SessionSnapshot) FindHistoryEntry(placeID string) (Place, bool) {
	for _, p := range s.History {
		if p.PlaceID == placeID {
			return p, true
		}
	}
	return Place{}, false
}

// FindResult returns the prediction with the given place id
func (s SessionSnapshot) FindResult(placeID string) (AutocompletePrediction, bool) {
	for _, p := range s.Results {
		if p.PlaceID == placeID {
			return p, true
		}
	}
	return AutocompletePrediction{}, false
}
