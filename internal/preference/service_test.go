package preference

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/devtools-hub/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.SQLiteStorage) {
	t.Helper()
	store := storage.NewStorageAt(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	fixed := time.UnixMilli(1_700_000_000_000)
	return NewService(store, WithClock(func() time.Time { return fixed })), store
}

func TestGetMissing(t *testing.T) {
	svc, _ := newTestService(t)

	data, err := svc.Get(context.Background(), "hash")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSetReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Set(ctx, "hash", map[string]any{"a": 1}))
	require.NoError(t, svc.Set(ctx, "hash", map[string]any{"b": 2}))

	data, err := svc.Get(ctx, "hash")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": float64(2)}, data)
}

func TestSetStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.Set(ctx, "uuid", map[string]any{"version": "v4"}))

	rec, err := store.GetPreference(ctx, "uuid")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1_700_000_000_000), rec.UpdatedAt)
	assert.JSONEq(t, `{"version":"v4"}`, rec.Data)
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Set(ctx, "hmac", map[string]any{"a": 1, "c": "x"}))

	merged, err := svc.Merge(ctx, "hmac", map[string]any{"b": 2, "c": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": 2}, merged)

	data, err := svc.Get(ctx, "hmac")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, data)
}

func TestMergeWithoutStoredValue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	merged, err := svc.Merge(ctx, "cookie", map[string]any{"decode": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"decode": true}, merged)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Set(ctx, "base64", map[string]any{"urlSafe": true}))
	require.NoError(t, svc.Delete(ctx, "base64"))
	require.NoError(t, svc.Delete(ctx, "base64"), "deleting twice is a no-op")

	data, err := svc.Get(ctx, "base64")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestUnparsableDataReadsAsMissing(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, store.PutPreference(ctx, storage.PreferenceRecord{Tool: "url", Data: "{not json", UpdatedAt: 1}))

	data, err := svc.Get(ctx, "url")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.PutPreference(ctx, storage.PreferenceRecord{Tool: "url", Data: "[1,2]", UpdatedAt: 2}))

	data, err = svc.Get(ctx, "url")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestEmptyTool(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyTool)
	assert.ErrorIs(t, svc.Set(ctx, "", nil), ErrEmptyTool)
	assert.ErrorIs(t, svc.Delete(ctx, ""), ErrEmptyTool)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.Close())

	_, err := svc.Get(ctx, "hash")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, svc.Set(ctx, "hash", map[string]any{"a": 1}), storage.ErrUnavailable)
}

func TestMergeShallowDoesNotMutate(t *testing.T) {
	base := map[string]any{"a": 1}
	overlay := map[string]any{"b": 2}

	out := MergeShallow(base, overlay)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, out)
	assert.Equal(t, map[string]any{"a": 1}, base)
	assert.Equal(t, map[string]any{"b": 2}, overlay)
}
