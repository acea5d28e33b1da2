package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

func TestLoadEnvFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(dir, "db")})
	require.NoError(t, err)
	defer manager.Close()

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(`# places credentials
GOOGLE_PLACES_API_KEY="abc123"
EMPTY=
export REGION=sf
`), 0600))

	require.NoError(t, manager.LoadEnvFile(ctx, envPath))

	kv := manager.KeyValueStorage()
	value, err := kv.Get(ctx, "google_places_api_key")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)

	value, err = kv.Get(ctx, "REGION")
	require.NoError(t, err)
	assert.Equal(t, "sf", value)

	_, err = kv.Get(ctx, "empty")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	assert.NoError(t, manager.LoadEnvFile(ctx, filepath.Join(dir, "missing.env")))
	assert.NoError(t, manager.LoadEnvFile(ctx, ""))
}

func TestLoadEnvFile_SkipsReservedKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(dir, "db")})
	require.NoError(t, err)
	defer manager.Close()

	kv := manager.KeyValueStorage()
	stored := `[{"place_id":"A"},{"place_id":"B"}]`
	require.NoError(t, kv.Set(ctx, "search_history", stored, "history"))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEARCH_HISTORY=[]\nREGION=sf\n"), 0600))

	require.NoError(t, manager.LoadEnvFile(ctx, envPath, "search_history"))

	value, err := kv.Get(ctx, "search_history")
	require.NoError(t, err)
	assert.Equal(t, stored, value)

	value, err = kv.Get(ctx, "region")
	require.NoError(t, err)
	assert.Equal(t, "sf", value)
}
