package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/handlers"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/services/events"
	"github.com/ternarybob/placefinder/internal/services/history"
	"github.com/ternarybob/placefinder/internal/services/kv"
	"github.com/ternarybob/placefinder/internal/services/places"
	"github.com/ternarybob/placefinder/internal/services/search"
	"github.com/ternarybob/placefinder/internal/storage"
)

// apiKeyName is the KV entry that may hold the Places API key
const apiKeyName = "google_places_api_key"

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Services
	EventService   interfaces.EventService
	PlacesService  *places.Service
	HistoryService interfaces.HistoryService
	KVService      *kv.Service
	SearchService  *search.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	SessionHandler *handlers.SessionHandler
	KVHandler      *handlers.KVHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Mount-time history load so the first snapshot already carries it
	app.SearchService.LoadHistory(context.Background())

	logger.Info().
		Int("history_entries", len(app.SearchService.Snapshot().History)).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer, seeds it from the .env file and
// resolves {key} references in the config against it
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", a.Config.Storage.Type).
		Msg("Storage layer initialized")

	ctx := context.Background()
	if err := storageManager.LoadEnvFile(ctx, a.Config.Storage.EnvFile, a.Config.History.Key); err != nil {
		a.Logger.Warn().Err(err).Str("file", a.Config.Storage.EnvFile).Msg("Failed to load .env file")
	}

	if err := a.resolveConfigReferences(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to resolve config key references")
	}

	return nil
}

// resolveConfigReferences replaces {key} references in the loaded config with
// values held in the KV store
func (a *App) resolveConfigReferences(ctx context.Context) error {
	pairs, err := a.StorageManager.KeyValueStorage().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list KV entries: %w", err)
	}

	kvMap := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		kvMap[pair.Key] = pair.Value
	}

	return common.ReplaceInStruct(a.Config, kvMap, a.Logger)
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	apiKey, err := common.ResolveAPIKey(context.Background(), a.StorageManager.KeyValueStorage(), apiKeyName, a.Config.PlacesAPI.APIKey)
	if err != nil {
		// A missing key is not fatal: requests fail at the remote service instead
		a.Logger.Warn().Err(err).Msg("Places API key not configured")
	}

	a.PlacesService = places.NewService(&a.Config.PlacesAPI, apiKey, a.Logger)
	a.HistoryService = history.NewService(a.StorageManager.KeyValueStorage(), &a.Config.History, a.Logger)
	a.KVService = kv.NewService(a.StorageManager.KeyValueStorage(), a.EventService, a.Logger, a.Config.History.Key)
	if err := a.EventService.Subscribe(interfaces.EventVariableChanged, a.handleVariableChanged); err != nil {
		return fmt.Errorf("failed to subscribe to variable changes: %w", err)
	}
	a.SearchService = search.NewService(
		a.PlacesService,
		a.HistoryService,
		a.EventService,
		&a.Config.Search,
		a.Logger,
	)

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

// handleVariableChanged re-resolves the Places API key when its KV entry changes
func (a *App) handleVariableChanged(ctx context.Context, event interfaces.Event) error {
	change, ok := event.Payload.(interfaces.VariableChange)
	if !ok || change.Key != apiKeyName {
		return nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), apiKeyName, a.Config.PlacesAPI.APIKey)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Places API key not configured")
	}
	a.PlacesService.SetAPIKey(apiKey)
	return nil
}

// initHandlers initializes HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Config.Storage.Type, a.PlacesService, a.SearchService, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SearchService, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.KVService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.SearchService, a.Logger, &a.Config.WebSocket)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SearchService != nil {
		a.SearchService.Close()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
