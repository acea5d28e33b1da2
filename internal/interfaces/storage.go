package interfaces

import "context"

// StorageManager exposes the storage backends used by the application
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	// LoadEnvFile seeds the key/value store from a .env file, skipping reserved keys.
	// A missing file is ignored.
	LoadEnvFile(ctx context.Context, filePath string, reserved ...string) error
	Close() error
}
