package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/storage/badger"
)

// fakeKV is an in-memory KeyValueStorage with injectable faults
type fakeKV struct {
	mu        sync.Mutex
	data      map[string]string
	getErr    error
	setErr    error
	deleteErr error
	sets      int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.data[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (f *fakeKV) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	value, err := f.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &interfaces.KeyValuePair{Key: key, Value: value}, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.data[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *fakeKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pairs := make([]interfaces.KeyValuePair, 0, len(f.data))
	for k, v := range f.data {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func place(id string) models.Place {
	return models.Place{PlaceID: id, Name: "Place " + id, FormattedAddress: id + " Street"}
}

func ids(places []models.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.PlaceID
	}
	return out
}

func TestGetHistory_EmptyWhenMissing(t *testing.T) {
	service := NewService(newFakeKV(), nil, arbor.NewLogger())
	history := service.GetHistory(context.Background())
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestGetHistory_EmptyOnReadFailure(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("disk on fire")
	service := NewService(kv, nil, arbor.NewLogger())
	assert.Empty(t, service.GetHistory(context.Background()))
}

func TestGetHistory_EmptyOnCorruptPayload(t *testing.T) {
	kv := newFakeKV()
	kv.data[DefaultKey] = "{not a list"
	service := NewService(kv, nil, arbor.NewLogger())
	assert.Empty(t, service.GetHistory(context.Background()))
}

func TestSaveToHistory_PromotesAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	service := NewService(kv, nil, arbor.NewLogger())

	require.NoError(t, service.SaveToHistory(ctx, place("A")))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))
	require.NoError(t, service.SaveToHistory(ctx, place("C")))
	assert.Equal(t, []string{"C", "B", "A"}, ids(service.GetHistory(ctx)))

	updated := place("A")
	updated.Name = "Renamed"
	require.NoError(t, service.SaveToHistory(ctx, updated))

	history := service.GetHistory(ctx)
	assert.Equal(t, []string{"A", "C", "B"}, ids(history))
	assert.Equal(t, "Renamed", history[0].Name)
	assert.Equal(t, 4, kv.sets, "each save is a single write")
}

func TestSaveToHistory_Idempotent(t *testing.T) {
	ctx := context.Background()
	service := NewService(newFakeKV(), nil, arbor.NewLogger())

	require.NoError(t, service.SaveToHistory(ctx, place("A")))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))

	assert.Equal(t, []string{"B", "A"}, ids(service.GetHistory(ctx)))
}

func TestSaveToHistory_BoundedDropsOldest(t *testing.T) {
	ctx := context.Background()
	service := NewService(newFakeKV(), nil, arbor.NewLogger())

	for i := 0; i < DefaultMaxEntries; i++ {
		require.NoError(t, service.SaveToHistory(ctx, place(fmt.Sprintf("p%02d", i))))
	}
	require.Len(t, service.GetHistory(ctx), DefaultMaxEntries)

	require.NoError(t, service.SaveToHistory(ctx, place("new")))
	history := service.GetHistory(ctx)
	require.Len(t, history, DefaultMaxEntries)
	assert.Equal(t, "new", history[0].PlaceID)
	assert.Equal(t, "p01", history[len(history)-1].PlaceID)
	assert.NotContains(t, ids(history), "p00")
}

func TestSaveToHistory_ConfiguredBound(t *testing.T) {
	ctx := context.Background()
	config := &common.HistoryConfig{Key: "recent", MaxEntries: 2}
	kv := newFakeKV()
	service := NewService(kv, config, arbor.NewLogger())

	require.NoError(t, service.SaveToHistory(ctx, place("A")))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))
	require.NoError(t, service.SaveToHistory(ctx, place("C")))

	assert.Equal(t, []string{"C", "B"}, ids(service.GetHistory(ctx)))
	assert.Contains(t, kv.data, "recent")
}

func TestSaveToHistory_WriteFailureIsPersistenceError(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("read-only filesystem")
	service := NewService(kv, nil, arbor.NewLogger())

	err := service.SaveToHistory(context.Background(), place("A"))
	require.Error(t, err)

	var persistErr *interfaces.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "save", persistErr.Op)
	assert.Equal(t, DefaultKey, persistErr.Key)
	assert.ErrorIs(t, err, kv.setErr)
}

func TestSaveToHistory_RecoversFromCorruptPayload(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.data[DefaultKey] = "garbage"
	service := NewService(kv, nil, arbor.NewLogger())

	require.NoError(t, service.SaveToHistory(ctx, place("A")))
	assert.Equal(t, []string{"A"}, ids(service.GetHistory(ctx)))
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	service := NewService(kv, nil, arbor.NewLogger())

	require.NoError(t, service.ClearHistory(ctx), "clearing an absent history succeeds")

	require.NoError(t, service.SaveToHistory(ctx, place("A")))
	require.NoError(t, service.ClearHistory(ctx))
	assert.Empty(t, service.GetHistory(ctx))

	kv.deleteErr = errors.New("locked")
	err := service.ClearHistory(ctx)
	var persistErr *interfaces.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "clear", persistErr.Op)
}

func TestPromote_DoesNotModifyInput(t *testing.T) {
	original := []models.Place{place("A"), place("B")}
	updated := Promote(original, place("B"), 50)

	assert.Equal(t, []string{"B", "A"}, ids(updated))
	assert.Equal(t, []string{"A", "B"}, ids(original))
}

func TestSaveToHistory_ConcurrentSavesKeepAllEntries(t *testing.T) {
	ctx := context.Background()
	service := NewService(newFakeKV(), nil, arbor.NewLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, service.SaveToHistory(ctx, place(fmt.Sprintf("p%d", i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, service.GetHistory(ctx), 10)
}

func TestService_BadgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := arbor.NewLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer manager.Close()

	rating := 4.5
	first := place("A")
	first.Rating = &rating
	first.Geometry = &models.Geometry{Location: models.LatLng{Lat: 24.86, Lng: 67.01}}

	service := NewService(manager.KeyValueStorage(), nil, logger)
	require.NoError(t, service.SaveToHistory(ctx, first))
	require.NoError(t, service.SaveToHistory(ctx, place("B")))

	reloaded := NewService(manager.KeyValueStorage(), nil, logger).GetHistory(ctx)
	require.Len(t, reloaded, 2)
	assert.Equal(t, "B", reloaded[0].PlaceID)
	require.NotNil(t, reloaded[1].Rating)
	assert.InDelta(t, 4.5, *reloaded[1].Rating, 0.0001)
	loc, ok := reloaded[1].Location()
	require.True(t, ok)
	assert.InDelta(t, 24.86, loc.Lat, 0.0001)

	require.NoError(t, service.ClearHistory(ctx))
	assert.Empty(t, service.GetHistory(ctx))
}
