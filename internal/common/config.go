package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/placefinder/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	PlacesAPI   PlacesAPIConfig `toml:"places_api"`
	Search      SearchConfig    `toml:"search"`
	History     HistoryConfig   `toml:"history"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Type   string       `toml:"type" validate:"oneof=badger redis"`
	Badger BadgerConfig `toml:"badger"`
	Redis  RedisConfig  `toml:"redis"`
	// EnvFile is a .env file whose variables are copied into the KV store at startup
	EnvFile string `toml:"env_file"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// RedisConfig represents the shared Redis store used when storage.type is "redis"
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix"` // prepended to every key
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// PlacesAPIConfig contains Google Places API configuration
type PlacesAPIConfig struct {
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `toml:"request_timeout" validate:"gt=0"`
	// RateLimit is the minimum interval between requests. Zero disables limiting.
	RateLimit time.Duration `toml:"rate_limit" validate:"gte=0"`
}

// SearchConfig controls the search session behaviour
type SearchConfig struct {
	DebounceInterval time.Duration `toml:"debounce_interval" validate:"gt=0"`
	MinQueryLength   int           `toml:"min_query_length" validate:"min=1"`
	// Origin is the reference point used to report distances to the selected place.
	OriginLatitude  float64 `toml:"origin_latitude" validate:"gte=-90,lte=90"`
	OriginLongitude float64 `toml:"origin_longitude" validate:"gte=-180,lte=180"`
}

// HistoryConfig controls the recency history store
type HistoryConfig struct {
	Key        string `toml:"key" validate:"required"`
	MaxEntries int    `toml:"max_entries" validate:"min=1"`
}

// WebSocketConfig contains configuration for session push
type WebSocketConfig struct {
	// ThrottleInterval bounds how often session snapshots are pushed to clients.
	// Empty disables throttling.
	ThrottleInterval string `toml:"throttle_interval"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "placefinder:",
			},
			EnvFile: ".env",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		PlacesAPI: PlacesAPIConfig{
			APIKey:         "", // Supplied via env or config file
			BaseURL:        "https://maps.googleapis.com/maps/api/place",
			RequestTimeout: 30 * time.Second,
			RateLimit:      0,
		},
		Search: SearchConfig{
			DebounceInterval: 300 * time.Millisecond,
			MinQueryLength:   2,
			OriginLatitude:   37.7749,
			OriginLongitude:  -122.4194,
		},
		History: HistoryConfig{
			Key:        "search_history",
			MaxEntries: 50,
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "100ms",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI overrides are applied separately by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the struct tags on the configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PLACEFINDER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PLACEFINDER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PLACEFINDER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("PLACEFINDER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if storageType := os.Getenv("PLACEFINDER_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if redisAddr := os.Getenv("PLACEFINDER_REDIS_ADDR"); redisAddr != "" {
		config.Storage.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("PLACEFINDER_REDIS_PASSWORD"); redisPassword != "" {
		config.Storage.Redis.Password = redisPassword
	}
	if envFile := os.Getenv("PLACEFINDER_ENV_FILE"); envFile != "" {
		config.Storage.EnvFile = envFile
	}

	// Logging configuration
	if level := os.Getenv("PLACEFINDER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PLACEFINDER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Places API configuration
	if apiKey := os.Getenv("GOOGLE_PLACES_API_KEY"); apiKey != "" {
		config.PlacesAPI.APIKey = apiKey
	}
	if apiKey := os.Getenv("PLACEFINDER_PLACES_API_KEY"); apiKey != "" {
		config.PlacesAPI.APIKey = apiKey // PLACEFINDER_ prefix takes priority
	}
	if baseURL := os.Getenv("PLACEFINDER_PLACES_BASE_URL"); baseURL != "" {
		config.PlacesAPI.BaseURL = baseURL
	}
	if requestTimeout := os.Getenv("PLACEFINDER_PLACES_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.PlacesAPI.RequestTimeout = rt
		}
	}
	if rateLimit := os.Getenv("PLACEFINDER_PLACES_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.PlacesAPI.RateLimit = rl
		}
	}

	// Search configuration
	if debounce := os.Getenv("PLACEFINDER_SEARCH_DEBOUNCE"); debounce != "" {
		if d, err := time.ParseDuration(debounce); err == nil {
			config.Search.DebounceInterval = d
		}
	}
	if minLen := os.Getenv("PLACEFINDER_SEARCH_MIN_QUERY_LENGTH"); minLen != "" {
		if ml, err := strconv.Atoi(minLen); err == nil {
			config.Search.MinQueryLength = ml
		}
	}

	// History configuration
	if maxEntries := os.Getenv("PLACEFINDER_HISTORY_MAX_ENTRIES"); maxEntries != "" {
		if me, err := strconv.Atoi(maxEntries); err == nil {
			config.History.MaxEntries = me
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key with resolution order: environment -> KV store -> config.
// The KV store lets a key be provisioned once into the local database instead of the config file.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	for _, envVarName := range []string{"PLACEFINDER_PLACES_API_KEY", "GOOGLE_PLACES_API_KEY"} {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// An unresolved {key} reference is not a usable key
	if configFallback != "" && !keyRefPattern.MatchString(configFallback) {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
