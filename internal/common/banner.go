package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Placefinder", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("address", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)).
		Str("storage", config.Storage.Type).
		Str("places_api", config.PlacesAPI.BaseURL).
		Dur("debounce", config.Search.DebounceInterval).
		Int("history_max", config.History.MaxEntries).
		Msg("Placefinder starting")
}
