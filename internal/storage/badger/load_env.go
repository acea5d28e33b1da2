package badger

import (
	"context"

	"github.com/ternarybob/placefinder/internal/common"
)

// LoadEnvFile copies the variables of a .env file into the KV store.
// Keys are stored lowercased.
func (m *Manager) LoadEnvFile(ctx context.Context, filePath string, reserved ...string) error {
	return common.LoadEnvIntoKV(ctx, m.kv, filePath, m.logger, reserved...)
}
