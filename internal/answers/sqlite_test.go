package answers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "answers.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	set := Set{1: 0, 2: 3, 15: 1}
	require.NoError(t, store.Save(ctx, 42, set))

	loaded, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, set, loaded)
}

func TestSQLiteStoreLoadMissingReturnsEmptySet(t *testing.T) {
	store := newTempStore(t)

	loaded, err := store.Load(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStoreSaveOverwrites(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 42, Set{1: 0}))
	require.NoError(t, store.Save(ctx, 42, Set{1: 2, 3: 1}))

	loaded, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, Set{1: 2, 3: 1}, loaded)
}

func TestSQLiteStoreClear(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 42, Set{1: 0}))
	require.NoError(t, store.Save(ctx, 43, Set{2: 1}))
	require.NoError(t, store.Clear(ctx, 42))

	loaded, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Other exams are untouched.
	loaded, err = store.Load(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, Set{2: 1}, loaded)
}

func TestStorageKeyIsPerExam(t *testing.T) {
	assert.Equal(t, "exam:42:answers", StorageKey(42))
	assert.NotEqual(t, StorageKey(42), StorageKey(43))
}
