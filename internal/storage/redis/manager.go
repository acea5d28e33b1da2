// Package redis is the Redis-backed storage layer, used when several instances
// share one history and variable store.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

const pingTimeout = 5 * time.Second

// Manager implements the StorageManager interface for Redis
type Manager struct {
	client *goredis.Client
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager connects to Redis and fails when the server cannot be reached
func NewManager(logger arbor.ILogger, config *common.RedisConfig) (interfaces.StorageManager, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	logger.Debug().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Str("prefix", config.Prefix).
		Msg("Redis storage manager initialized")

	return &Manager{
		client: client,
		kv:     NewKVStorage(client, config.Prefix, logger),
		logger: logger,
	}, nil
}

// KeyValueStorage returns the key/value storage
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// LoadEnvFile copies the variables of a .env file into the KV store
func (m *Manager) LoadEnvFile(ctx context.Context, filePath string, reserved ...string) error {
	return common.LoadEnvIntoKV(ctx, m.kv, filePath, m.logger, reserved...)
}

// Close closes the Redis client
func (m *Manager) Close() error {
	if err := m.client.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close Redis client")
		return err
	}
	m.logger.Debug().Msg("Redis storage manager closed")
	return nil
}
