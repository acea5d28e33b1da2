package common

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// LoadEnvIntoKV copies the variables of a .env file into kv so secrets such as
// GOOGLE_PLACES_API_KEY can be provisioned once without editing config files.
// An empty path or a missing file is not an error. Reserved keys are never
// written, so a stray line cannot replace data the application owns.
func LoadEnvIntoKV(ctx context.Context, kv interfaces.KeyValueStorage, filePath string, logger arbor.ILogger, reserved ...string) error {
	if filePath == "" {
		return nil
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logger.Debug().Str("file", filePath).Msg(".env file does not exist, skipping")
		return nil
	}

	values, err := godotenv.Read(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", filePath, err)
	}

	loaded, skipped := 0, 0
	for key, value := range values {
		if key == "" || value == "" {
			skipped++
			continue
		}
		if isReservedKey(key, reserved) {
			logger.Warn().Str("key", key).Msg("Ignoring reserved key in .env file")
			skipped++
			continue
		}
		if err := kv.Set(ctx, key, value, "Loaded from .env file"); err != nil {
			return fmt.Errorf("failed to store variable %s: %w", key, err)
		}
		loaded++
	}

	logger.Debug().
		Str("file", filePath).
		Int("loaded", loaded).
		Int("skipped", skipped).
		Msg("Finished loading variables from .env file")

	return nil
}

func isReservedKey(key string, reserved []string) bool {
	for _, r := range reserved {
		if strings.EqualFold(key, r) {
			return true
		}
	}
	return false
}
