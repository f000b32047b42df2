package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice/pkg/dataprep"
	"houseprice/pkg/model"
)

func trained(t *testing.T, r2 float64) *Artifact {
	t.Helper()
	X := [][]float64{{1, 0}, {2, 1}, {3, 0}, {4, 1}}
	y := []float64{100, 200, 300, 400}
	rf := model.NewRandomForestRegressor(model.WithNEstimators(3), model.WithForestRandomState(42))
	require.NoError(t, rf.Fit(X, y))
	return &Artifact{
		Version:   FormatVersion,
		Model:     rf,
		Columns:   dataprep.Manifest{"GrLivArea", "Neighborhood_NAmes"},
		R2:        &r2,
		RunID:     "run-1",
		TrainedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Rows:      4,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report ErrNotFound before the first save", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "models", "model_store.gob"))
		_, err := s.Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should round trip an artifact", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "models", "model_store.gob"))
		a := trained(t, 0.8)
		require.NoError(t, s.Save(ctx, a))

		got, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, a.Columns, got.Columns)
		assert.Equal(t, 0.8, *got.R2)
		assert.Equal(t, "run-1", got.RunID)
		assert.True(t, a.TrainedAt.Equal(got.TrainedAt))
		assert.False(t, got.Fallback)
		X := [][]float64{{2.5, 1}}
		assert.Equal(t, a.Model.Predict(X), got.Model.Predict(X))
	})

	t.Run("Should replace the previous artifact and leave no temp files", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(filepath.Join(dir, "model_store.gob"))
		require.NoError(t, s.Save(ctx, trained(t, 0.5)))
		require.NoError(t, s.Save(ctx, trained(t, 0.9)))

		got, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, 0.9, *got.R2)

		matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Should refuse to save an invalid artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model_store.gob")
		s := NewStore(path)
		a := trained(t, 0.5)
		a.Columns = nil
		assert.ErrorIs(t, s.Save(ctx, a), ErrInvalid)
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Should flag a corrupt file as invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model_store.gob")
		require.NoError(t, os.WriteFile(path, []byte("not a gob"), 0o600))
		_, err := NewStore(path).Load()
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Should persist the fallback artifact", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "model_store.gob"))
		require.NoError(t, s.Save(ctx, Fallback(200000, dataprep.Manifest{"GrLivArea"})))
		got, err := s.Load()
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Nil(t, got.R2)
		assert.Equal(t, []float64{200000}, got.Model.Predict([][]float64{{1}}))
	})

	t.Run("Should honour a cancelled context while waiting for the lock", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model_store.gob")
		s := NewStore(path)
		other := NewStore(path)
		locked, err := other.lock.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer func() { _ = other.lock.Unlock() }()

		cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		assert.Error(t, s.Save(cctx, trained(t, 0.5)))
	})

	t.Run("Should default the path", func(t *testing.T) {
		assert.Equal(t, filepath.Clean(DefaultPath), NewStore("").Path())
	})
}
