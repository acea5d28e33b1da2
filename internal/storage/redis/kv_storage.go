package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// KVStorage implements KeyValueStorage on Redis. Each pair is a hash under
// {prefix}kv:{key}; a sorted set scored by update time keeps List ordered.
type KVStorage struct {
	client *goredis.Client
	prefix string
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(client *goredis.Client, prefix string, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) pairKey(key string) string {
	return s.prefix + "kv:" + key
}

func (s *KVStorage) indexKey() string {
	return s.prefix + "kv:index"
}

// Get retrieves a value by key (case-insensitive)
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	pair, err := s.GetPair(ctx, key)
	if err != nil {
		return "", err
	}
	return pair.Value, nil
}

// GetPair retrieves a full KeyValuePair by key (case-insensitive)
func (s *KVStorage) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	normalizedKey := s.normalizeKey(key)
	fields, err := s.client.HGetAll(ctx, s.pairKey(normalizedKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get key/value pair: %w", err)
	}
	if len(fields) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	return decodePair(normalizedKey, fields), nil
}

// Set inserts or updates a key/value pair (case-insensitive) in one transaction
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	normalizedKey := s.normalizeKey(key)
	if normalizedKey == "" {
		return fmt.Errorf("key cannot be empty")
	}
	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pairKey := s.pairKey(normalizedKey)
		pipe.HSetNX(ctx, pairKey, "created_at", stamp)
		pipe.HSet(ctx, pairKey, "value", value, "description", description, "updated_at", stamp)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: float64(now.UnixNano()), Member: normalizedKey})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set key/value pair: %w", err)
	}
	return nil
}

// Delete removes a key/value pair (case-insensitive)
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	normalizedKey := s.normalizeKey(key)

	var deleted *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.pairKey(normalizedKey))
		pipe.ZRem(ctx, s.indexKey(), normalizedKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if deleted.Val() == 0 {
		return interfaces.ErrKeyNotFound
	}
	return nil
}

// List returns all key/value pairs ordered by updated_at DESC
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	keys, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}
	if len(keys) == 0 {
		return []interfaces.KeyValuePair{}, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, s.pairKey(key))
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}

	pairs := make([]interfaces.KeyValuePair, 0, len(keys))
	for i, key := range keys {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			// index entry without a hash: the pair was removed outside this store
			s.logger.Debug().Str("key", key).Msg("Skipping stale index entry")
			continue
		}
		pairs = append(pairs, *decodePair(key, fields))
	}
	return pairs, nil
}

func decodePair(key string, fields map[string]string) *interfaces.KeyValuePair {
	pair := &interfaces.KeyValuePair{
		Key:         key,
		Value:       fields["value"],
		Description: fields["description"],
	}
	pair.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	pair.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return pair
}
