package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/storage/badger"
	"github.com/ternarybob/placefinder/internal/storage/redis"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Type {
	case "", "badger":
		return badger.NewManager(logger, &config.Storage.Badger)
	case "redis":
		return redis.NewManager(logger, &config.Storage.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Storage.Type)
	}
}
