package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
)

func TestNewStorageManager_Badger(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()

	manager, err := NewStorageManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer manager.Close()

	assert.NotNil(t, manager.KeyValueStorage())
}

func TestNewStorageManager_Unsupported(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.Type = "sqlite"

	_, err := NewStorageManager(arbor.NewLogger(), config)
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestNewStorageManager_RedisUnreachable(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.Type = "redis"
	config.Storage.Redis.Addr = "127.0.0.1:1"

	_, err := NewStorageManager(arbor.NewLogger(), config)
	assert.Error(t, err)
}
