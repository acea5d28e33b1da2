package models

// LatLng represents a geographic coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry represents the geometry information of a place
type Geometry struct {
	Location LatLng `json:"location"`
}

// OpeningHours carries the open/closed flag returned with place details
type OpeningHours struct {
	OpenNow bool `json:"open_now"`
}

// Place is a fully resolved place record. Identity is PlaceID; every other field is a
// copy taken at detail-lookup time. Places are replaced, never edited.
type Place struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	FormattedAddress string        `json:"formatted_address"`
	Geometry         *Geometry     `json:"geometry,omitempty"`
	Rating           *float64      `json:"rating,omitempty"` // 0-5
	PhoneNumber      string        `json:"formatted_phone_number,omitempty"`
	Website          string        `json:"website,omitempty"`
	OpeningHours     *OpeningHours `json:"opening_hours,omitempty"`
	Types            []string      `json:"types,omitempty"`
}

// Location returns the place coordinate and whether one is present
func (p *Place) Location() (LatLng, bool) {
	if p == nil || p.Geometry == nil {
		return LatLng{}, false
	}
	return p.Geometry.Location, true
}

// Stars returns the whole-star count for the rating (0 when unrated)
func (p *Place) Stars() int {
	if p == nil || p.Rating == nil || *p.Rating <= 0 {
		return 0
	}
	stars := int(*p.Rating)
	if stars > 5 {
		stars = 5
	}
	return stars
}

// TopTypes returns at most n category tags, in remote order
func (p *Place) TopTypes(n int) []string {
	if p == nil {
		return nil
	}
	if len(p.Types) <= n {
		return p.Types
	}
	return p.Types[:n]
}

// MatchedSubstring marks a highlighted span in a prediction description
type MatchedSubstring struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// StructuredFormatting splits a prediction into main and secondary text
type StructuredFormatting struct {
	MainText                  string             `json:"main_text"`
	MainTextMatchedSubstrings []MatchedSubstring `json:"main_text_matched_substrings,omitempty"`
	SecondaryText             string             `json:"secondary_text,omitempty"`
}

// PredictionTerm is one comma-separated component of a prediction description
type PredictionTerm struct {
	Offset int    `json:"offset"`
	Value  string `json:"value"`
}

// AutocompletePrediction is an unresolved search hit. It must be resolved through a
// detail lookup before it becomes a Place, and it is never persisted.
type AutocompletePrediction struct {
	PlaceID              string                `json:"place_id"`
	Description          string                `json:"description"`
	MatchedSubstrings    []MatchedSubstring    `json:"matched_substrings,omitempty"`
	StructuredFormatting *StructuredFormatting `json:"structured_formatting,omitempty"`
	Terms                []PredictionTerm      `json:"terms,omitempty"`
	Types                []string              `json:"types,omitempty"`
}

// Highlights splits the description into alternating plain/matched segments.
// Offsets outside the description are ignored.
func (p AutocompletePrediction) Highlights() []TextSegment {
	runes := []rune(p.Description)
	segments := []TextSegment{}
	cursor := 0
	for _, m := range p.MatchedSubstrings {
		start, end := m.Offset, m.Offset+m.Length
		if start < cursor || m.Length <= 0 || end > len(runes) {
			continue
		}
		if start > cursor {
			segments = append(segments, TextSegment{Text: string(runes[cursor:start])})
		}
		segments = append(segments, TextSegment{Text: string(runes[start:end]), Matched: true})
		cursor = end
	}
	if cursor < len(runes) {
		segments = append(segments, TextSegment{Text: string(runes[cursor:])})
	}
	return segments
}

// TextSegment is a piece of a highlighted description
type TextSegment struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}
