package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testNetwork struct {
	Weights []float64 `json:"weights"`
}

func newTestStore(t *testing.T) *Store[testNetwork] {
	t.Helper()
	store, err := NewStore[testNetwork](filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)
	return store
}

func TestStoreExportLoad(t *testing.T) {
	store := newTestStore(t)
	net := testNetwork{Weights: []float64{0.5, -1}}

	require.NoError(t, store.Export(context.Background(), net, 2000))

	got, err := store.Load(2000)
	require.NoError(t, err)
	require.Equal(t, net, got)
	require.FileExists(t, store.Path(2000))
	require.Equal(t, "network-00002000.json", filepath.Base(store.Path(2000)))
}

func TestStoreAppendOnly(t *testing.T) {
	store := newTestStore(t)
	first := testNetwork{Weights: []float64{1}}
	require.NoError(t, store.Export(context.Background(), first, 4000))

	err := store.Export(context.Background(), testNetwork{Weights: []float64{2}}, 4000)

	require.ErrorIs(t, err, ErrExists)
	got, err := store.Load(4000)
	require.NoError(t, err)
	require.Equal(t, first, got, "Existing checkpoint should not be overwritten")
}

func TestStoreExportFailures(t *testing.T) {
	t.Run("cancelled context writes nothing", func(t *testing.T) {
		store := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Export(ctx, testNetwork{}, 10)

		require.ErrorIs(t, err, context.Canceled)
		require.NoFileExists(t, store.Path(10))
	})

	t.Run("negative step", func(t *testing.T) {
		store := newTestStore(t)
		require.Error(t, store.Export(context.Background(), testNetwork{}, -1))
	})

	t.Run("no temporary files are left behind", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Export(context.Background(), testNetwork{}, 1))
		require.Error(t, store.Export(context.Background(), testNetwork{}, 1))

		entries, err := os.ReadDir(store.dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}

func TestStoreLatest(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Latest()
	require.NoError(t, err)
	require.False(t, found)

	for _, step := range []int{2000, 10000, 4000} {
		require.NoError(t, store.Export(context.Background(), testNetwork{}, step))
	}
	// Unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "network-abc.json"), nil, 0644))

	steps, err := store.Steps()
	require.NoError(t, err)
	require.Equal(t, []int{2000, 4000, 10000}, steps)

	step, found, err := store.Latest()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 10000, step)
}

func TestStoreLoadMismatchedStep(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Export(context.Background(), testNetwork{}, 1))
	require.NoError(t, os.Rename(store.Path(1), store.Path(2)))

	_, err := store.Load(2)

	require.Error(t, err)
}
