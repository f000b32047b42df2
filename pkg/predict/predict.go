// Package predict serves single-record price predictions from the current
// model artifact and lets a retrain swap that artifact without a pause.
package predict

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"houseprice/pkg/artifact"
	"houseprice/pkg/dataprep"
	"houseprice/pkg/logger"
	"houseprice/pkg/metrics"
	"houseprice/pkg/schema"
)

// DefaultFallbackPrice is what the untrained service predicts for every house.
const DefaultFallbackPrice = 200000

// Loader reads the persisted artifact.
type Loader interface {
	Load() (*artifact.Artifact, error)
}

// Prediction is a scored request. R2 is nil while the fallback is served.
// Unseen lists one-hot columns the request would set that the model was not
// trained on; they contribute nothing to Price.
type Prediction struct {
	Price    float64
	R2       *float64
	Unseen   []string
	Fallback bool
	RunID    string
}

type snapshot struct {
	art *artifact.Artifact
	gen uint64
}

// Predictor owns the served artifact. Reads take an immutable snapshot, so a
// Replace never exposes a model paired with another model's manifest.
type Predictor struct {
	loader        Loader
	current       atomic.Pointer[snapshot]
	gen           atomic.Uint64
	cache         *lru.Cache[string, float64]
	cacheSize     int
	fallbackPrice float64
	metrics       *metrics.Metrics
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithFallbackPrice sets the constant served before the first training.
func WithFallbackPrice(v float64) Option { return func(p *Predictor) { p.fallbackPrice = v } }

// WithCacheSize enables an LRU of the last n distinct encoded requests. Zero
// disables caching.
func WithCacheSize(n int) Option { return func(p *Predictor) { p.cacheSize = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(p *Predictor) { p.metrics = m } }

// New loads the persisted artifact. When none exists the predictor starts on
// a constant fallback model; any other load failure is returned.
func New(l Loader, opts ...Option) (*Predictor, error) {
	p := &Predictor{
		loader:        l,
		fallbackPrice: DefaultFallbackPrice,
	}
	for _, o := range opts {
		o(p)
	}
	if p.cacheSize > 0 {
		c, err := lru.New[string, float64](p.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("predict: cache: %w", err)
		}
		p.cache = c
	}

	a, err := l.Load()
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		a = artifact.Fallback(p.fallbackPrice, dataprep.Manifest(schema.DefaultColumns))
	case err != nil:
		return nil, fmt.Errorf("predict: load model: %w", err)
	}
	if err := p.Replace(a); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the artifact currently served. Callers must not mutate it.
func (p *Predictor) Get() *artifact.Artifact {
	return p.current.Load().art
}

// Replace atomically swaps in a.
func (p *Predictor) Replace(a *artifact.Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("predict: replace: %w", err)
	}
	p.current.Store(&snapshot{art: a, gen: p.gen.Add(1)})
	if p.cache != nil {
		p.cache.Purge()
	}
	p.metrics.SetModel(a.R2, len(a.Columns), a.Rows, a.Fallback)
	return nil
}

// Reload re-reads the persisted artifact. The served model is kept when the
// read fails.
func (p *Predictor) Reload() error {
	a, err := p.loader.Load()
	if err != nil {
		return fmt.Errorf("predict: reload: %w", err)
	}
	return p.Replace(a)
}

// Predict validates req and scores it.
func (p *Predictor) Predict(ctx context.Context, req *schema.PredictRequest) (*Prediction, error) {
	start := time.Now()
	f, err := req.Validate()
	if err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeRejected, time.Since(start))
		return nil, err
	}
	pred := p.PredictFeatures(ctx, f)
	p.metrics.ObservePrediction(metrics.OutcomeOK, time.Since(start))
	return pred, nil
}

// PredictFeatures scores an already validated record against the current
// snapshot.
func (p *Predictor) PredictFeatures(ctx context.Context, f schema.Features) *Prediction {
	snap := p.current.Load()
	a := snap.art
	vec := a.Columns.Encode(f)

	unseen := a.Columns.Unseen(f)
	if len(unseen) > 0 {
		logger.FromContext(ctx).Debug("categories not seen in training", "columns", unseen, "run_id", a.RunID)
		p.metrics.AddUnseen(len(unseen))
	}

	var price float64
	key := ""
	hit := false
	if p.cache != nil {
		key = cacheKey(snap.gen, vec)
		price, hit = p.cache.Get(key)
	}
	if !hit {
		price = a.Model.Predict([][]float64{vec})[0]
		if p.cache != nil {
			p.cache.Add(key, price)
		}
	}

	return &Prediction{
		Price:    price,
		R2:       a.R2,
		Unseen:   unseen,
		Fallback: a.Fallback,
		RunID:    a.RunID,
	}
}

func cacheKey(gen uint64, vec []float64) string {
	buf := make([]byte, 0, 8*(len(vec)+1))
	buf = binary.LittleEndian.AppendUint64(buf, gen)
	for _, v := range vec {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return string(buf)
}
