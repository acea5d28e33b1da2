package places

import "github.com/ternarybob/placefinder/internal/models"

// StatusOK is the only status the Places web service uses for success
const StatusOK = "OK"

// AutocompleteResponse represents the Google Places Autocomplete API response
type AutocompleteResponse struct {
	Status       string                          `json:"status"`
	Predictions  []models.AutocompletePrediction `json:"predictions"`
	ErrorMessage string                          `json:"error_message,omitempty"`
}

// DetailsResponse represents the Google Places Details API response
type DetailsResponse struct {
	Status           string       `json:"status"`
	Result           models.Place `json:"result"`
	HTMLAttributions []string     `json:"html_attributions,omitempty"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}
