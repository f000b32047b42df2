package predict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice/pkg/artifact"
	"houseprice/pkg/dataprep"
	"houseprice/pkg/metrics"
	"houseprice/pkg/schema"
)

// countingModel predicts the sum of the vector plus Offset and counts calls.
type countingModel struct {
	Offset float64
	calls  atomic.Int64
}

func (m *countingModel) Fit([][]float64, []float64) error { return nil }

func (m *countingModel) Predict(X [][]float64) []float64 {
	m.calls.Add(1)
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.Offset
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

type loaderFunc func() (*artifact.Artifact, error)

func (f loaderFunc) Load() (*artifact.Artifact, error) { return f() }

func notFound() (*artifact.Artifact, error) { return nil, artifact.ErrNotFound }

func features() schema.Features {
	return schema.Features{
		GrLivArea:    1500,
		TotalBsmtSF:  500,
		GarageCars:   2,
		FullBath:     2,
		YearBuilt:    1995,
		OverallQual:  7,
		Neighborhood: string(schema.NAmes),
		HouseStyle:   string(schema.OneStory),
	}
}

func artifactWith(m *countingModel, r2 float64, columns ...string) *artifact.Artifact {
	return &artifact.Artifact{
		Version: artifact.FormatVersion,
		Model:   m,
		Columns: dataprep.Manifest(columns),
		R2:      &r2,
		RunID:   "run",
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Should serve the constant fallback when no artifact exists", func(t *testing.T) {
		p, err := New(loaderFunc(notFound))
		require.NoError(t, err)

		pred, err := p.Predict(ctx, schema.RequestFrom(features()))
		require.NoError(t, err)
		assert.Equal(t, 200000.0, pred.Price)
		assert.Nil(t, pred.R2)
		assert.True(t, pred.Fallback)
		assert.Empty(t, pred.Unseen)
		assert.Equal(t, dataprep.Manifest(schema.DefaultColumns), p.Get().Columns)
	})

	t.Run("Should honour the configured fallback price", func(t *testing.T) {
		p, err := New(loaderFunc(notFound), WithFallbackPrice(123))
		require.NoError(t, err)
		assert.Equal(t, 123.0, p.PredictFeatures(ctx, features()).Price)
	})

	t.Run("Should fail on a corrupt artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model_store.gob")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
		_, err := New(artifact.NewStore(path))
		assert.ErrorIs(t, err, artifact.ErrInvalid)
	})

	t.Run("Should load a persisted artifact", func(t *testing.T) {
		a := artifactWith(&countingModel{}, 0.7, "GrLivArea", "Neighborhood_NAmes")
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) { return a, nil }))
		require.NoError(t, err)
		pred := p.PredictFeatures(ctx, features())
		assert.Equal(t, 1501.0, pred.Price)
		assert.Equal(t, 0.7, *pred.R2)
		assert.False(t, pred.Fallback)
	})
}

func TestPredictor_Predict(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject an invalid request before scoring", func(t *testing.T) {
		m := &countingModel{}
		reg := metrics.New()
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) {
			return artifactWith(m, 0.5, "GrLivArea"), nil
		}), WithMetrics(reg))
		require.NoError(t, err)

		req := schema.RequestFrom(features())
		req.OverallQual = ptr(12.0)
		_, err = p.Predict(ctx, req)
		assert.ErrorIs(t, err, schema.ErrSchemaViolation)
		assert.Zero(t, m.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(reg.Predictions.WithLabelValues(metrics.OutcomeRejected)))
	})

	t.Run("Should report unseen categories and score them as zero", func(t *testing.T) {
		reg := metrics.New()
		a := artifactWith(&countingModel{}, 0.5, "GrLivArea", "Neighborhood_CollgCr", "HouseStyle_1Story")
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) { return a, nil }), WithMetrics(reg))
		require.NoError(t, err)

		pred, err := p.Predict(ctx, schema.RequestFrom(features()))
		require.NoError(t, err)
		assert.Equal(t, []string{"Neighborhood_NAmes"}, pred.Unseen)
		assert.Equal(t, 1501.0, pred.Price)
		assert.Equal(t, 1.0, testutil.ToFloat64(reg.UnseenCategories))
	})

	t.Run("Should reuse cached predictions until the model is replaced", func(t *testing.T) {
		m := &countingModel{}
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) {
			return artifactWith(m, 0.5, "GrLivArea"), nil
		}), WithCacheSize(8))
		require.NoError(t, err)

		p.PredictFeatures(ctx, features())
		p.PredictFeatures(ctx, features())
		assert.Equal(t, int64(1), m.calls.Load())

		next := &countingModel{Offset: 10}
		require.NoError(t, p.Replace(artifactWith(next, 0.9, "GrLivArea")))
		pred := p.PredictFeatures(ctx, features())
		assert.Equal(t, 1510.0, pred.Price)
		assert.Equal(t, int64(1), next.calls.Load())
	})
}

func TestPredictor_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("Should refuse an invalid artifact and keep serving", func(t *testing.T) {
		p, err := New(loaderFunc(notFound))
		require.NoError(t, err)
		assert.ErrorIs(t, p.Replace(&artifact.Artifact{Version: artifact.FormatVersion}), artifact.ErrInvalid)
		assert.True(t, p.Get().Fallback)
	})

	t.Run("Should reload from the loader", func(t *testing.T) {
		var current atomic.Pointer[artifact.Artifact]
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) {
			if a := current.Load(); a != nil {
				return a, nil
			}
			return nil, artifact.ErrNotFound
		}))
		require.NoError(t, err)
		assert.True(t, p.Get().Fallback)

		assert.ErrorIs(t, p.Reload(), artifact.ErrNotFound)
		assert.True(t, p.Get().Fallback)

		current.Store(artifactWith(&countingModel{}, 0.6, "GrLivArea"))
		require.NoError(t, p.Reload())
		assert.False(t, p.Get().Fallback)
		assert.Equal(t, 0.6, *p.PredictFeatures(ctx, features()).R2)
	})

	t.Run("Should never pair a model with another model's manifest", func(t *testing.T) {
		small := artifactWith(&countingModel{}, 0.1, "GrLivArea")
		wide := artifactWith(&countingModel{Offset: 1e6}, 0.2, "GrLivArea", "TotalBsmtSF")
		p, err := New(loaderFunc(func() (*artifact.Artifact, error) { return small, nil }), WithCacheSize(4))
		require.NoError(t, err)

		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				next := small
				if i%2 == 0 {
					next = wide
				}
				_ = p.Replace(next)
			}
		}()
		for range 500 {
			pred := p.PredictFeatures(ctx, features())
			switch *pred.R2 {
			case 0.1:
				assert.Equal(t, 1500.0, pred.Price)
			case 0.2:
				assert.Equal(t, 1e6+2000.0, pred.Price)
			}
		}
		close(stop)
		wg.Wait()
	})

	t.Run("Should propagate load errors other than not found", func(t *testing.T) {
		boom := errors.New("permission denied")
		_, err := New(loaderFunc(func() (*artifact.Artifact, error) { return nil, boom }))
		assert.ErrorIs(t, err, boom)
	})
}

func TestPrediction_Response(t *testing.T) {
	t.Run("Should shape the wire response with band and warnings", func(t *testing.T) {
		r2 := 0.82
		resp := (&Prediction{Price: 200000, R2: &r2, Unseen: []string{"Neighborhood_X"}}).Response(true)
		assert.Equal(t, "USD", resp.Currency)
		assert.Equal(t, 200000.0, resp.PredictedPrice)
		require.NotNil(t, resp.Band)
		assert.InDelta(t, 187400, resp.Band.Low, 1e-6)
		require.Len(t, resp.Warnings, 1)
		assert.Contains(t, resp.Warnings[0], "Neighborhood_X")
	})

	t.Run("Should omit the band unless asked", func(t *testing.T) {
		resp := (&Prediction{Price: 1}).Response(false)
		assert.Nil(t, resp.Band)
		assert.Nil(t, resp.R2Meta)
		assert.Empty(t, resp.Warnings)
	})
}

func ptr[T any](v T) *T { return &v }
