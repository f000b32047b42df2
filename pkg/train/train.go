// Package train fits the price model on a normalized dataset and persists it
// together with its column manifest.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"houseprice/pkg/artifact"
	"houseprice/pkg/data"
	"houseprice/pkg/dataprep"
	"houseprice/pkg/loader"
	"houseprice/pkg/logger"
	"houseprice/pkg/metrics"
	"houseprice/pkg/model"
	"houseprice/pkg/stats"
)

// ErrInsufficientData is returned when too few rows survive normalization to
// fit and evaluate a model.
var ErrInsufficientData = errors.New("insufficient data")

// Saver persists a trained artifact.
type Saver interface {
	Save(ctx context.Context, a *artifact.Artifact) error
}

// FeatureImportance is one manifest column's share of the forest's
// squared-error reduction.
type FeatureImportance struct {
	Column     string  `json:"column"`
	Importance float64 `json:"importance"`
}

// Result describes a successful training run.
type Result struct {
	RunID       string              `json:"run_id"`
	R2          float64             `json:"r2"`
	MAE         float64             `json:"mae"`
	RMSE        float64             `json:"rmse"`
	Columns     dataprep.Manifest   `json:"columns"`
	Rows        int                 `json:"rows"`
	TrainRows   int                 `json:"train_rows"`
	TestRows    int                 `json:"test_rows"`
	Target      stats.Summary       `json:"target"`
	Importances []FeatureImportance `json:"importances"`
	Duration    time.Duration       `json:"duration"`
	Artifact    *artifact.Artifact  `json:"-"`
}

// Trainer fits and persists models. It is safe to reuse but runs are not
// serialised against each other beyond the artifact file lock.
type Trainer struct {
	saver          Saver
	fs             afero.Fs
	metrics        *metrics.Metrics
	onTrained      func(*artifact.Artifact)
	now            func() time.Time
	estimators      int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	bootstrap       bool
	testRatio       float64
	seed            int64
	minSamples      int
	workers         int
}

// Option configures a Trainer.
type Option func(*Trainer)

func WithEstimators(n int) Option { return func(t *Trainer) { t.estimators = n } }
func WithMaxDepth(d int) Option { return func(t *Trainer) { t.maxDepth = d } }
func WithMinSamplesSplit(n int) Option { return func(t *Trainer) { t.minSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option { return func(t *Trainer) { t.minSamplesLeaf = n } }

// WithMaxFeatures sets how many features each split considers; 0 means all.
func WithMaxFeatures(k int) Option { return func(t *Trainer) { t.maxFeatures = k } }
func WithBootstrap(b bool) Option { return func(t *Trainer) { t.bootstrap = b } }
func WithTestRatio(r float64) Option { return func(t *Trainer) { t.testRatio = r } }
func WithSeed(seed int64) Option { return func(t *Trainer) { t.seed = seed } }
func WithMinSamples(n int) Option { return func(t *Trainer) { t.minSamples = n } }
func WithWorkers(n int) Option { return func(t *Trainer) { t.workers = n } }
func WithFs(fs afero.Fs) Option { return func(t *Trainer) { t.fs = fs } }
func WithMetrics(m *metrics.Metrics) Option { return func(t *Trainer) { t.metrics = m } }

// WithOnTrained registers a hook that receives every artifact after it has
// been saved, typically the predictor's Replace.
func WithOnTrained(fn func(*artifact.Artifact)) Option {
	return func(t *Trainer) { t.onTrained = fn }
}

// New returns a trainer that saves through s.
func New(s Saver, opts ...Option) *Trainer {
	t := &Trainer{
		saver:           s,
		fs:              afero.NewOsFs(),
		now:             time.Now,
		estimators:      300,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		testRatio:       0.2,
		seed:            42,
		minSamples:      2,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// FitFile reads a raw housing CSV from the trainer's filesystem and fits on it.
func (t *Trainer) FitFile(ctx context.Context, path string) (*Result, error) {
	return t.observe(ctx, func() (*Result, error) {
		table, err := data.ReadCSVFile(t.fs, path)
		if err != nil {
			return nil, err
		}
		return t.fitTable(ctx, table)
	})
}

// FitReader fits on a raw housing CSV stream.
func (t *Trainer) FitReader(ctx context.Context, r io.Reader) (*Result, error) {
	return t.observe(ctx, func() (*Result, error) {
		table, err := data.ReadCSV(r)
		if err != nil {
			return nil, err
		}
		return t.fitTable(ctx, table)
	})
}

// Fit trains on already normalized samples.
func (t *Trainer) Fit(ctx context.Context, samples []dataprep.Sample) (*Result, error) {
	return t.observe(ctx, func() (*Result, error) {
		return t.fit(ctx, samples)
	})
}

func (t *Trainer) fitTable(ctx context.Context, table *data.Table) (*Result, error) {
	samples, err := dataprep.Normalize(table)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("normalized training table",
		"rows", table.Len(), "kept", len(samples), "dropped", table.Len()-len(samples))
	return t.fit(ctx, samples)
}

func (t *Trainer) fit(ctx context.Context, samples []dataprep.Sample) (*Result, error) {
	start := t.now()
	if len(samples) < t.minSamples {
		return nil, fmt.Errorf("%w: %d usable rows, need at least %d", ErrInsufficientData, len(samples), t.minSamples)
	}

	columns := dataprep.BuildManifest(dataprep.Records(samples))
	X, y := dataprep.EncodeAll(samples, columns)
	XTrain, XTest, yTrain, yTest := loader.TrainTestSplit(X, y, t.testRatio, t.seed)
	if len(XTrain) == 0 || len(XTest) == 0 {
		return nil, fmt.Errorf("%w: %d rows cannot be split into train and test partitions",
			ErrInsufficientData, len(samples))
	}

	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run_id", runID)
	log.Info("training started",
		"rows", len(samples), "train_rows", len(XTrain), "test_rows", len(XTest),
		"columns", len(columns), "estimators", t.estimators)

	forest := model.NewRandomForestRegressor(
		model.WithNEstimators(t.estimators),
		model.WithForestMaxDepth(t.maxDepth),
		model.WithForestMinSamplesSplit(t.minSamplesSplit),
		model.WithForestMinSamplesLeaf(t.minSamplesLeaf),
		model.WithForestMaxFeatures(t.maxFeatures),
		model.WithBootstrap(t.bootstrap),
		model.WithForestRandomState(t.seed),
		model.WithWorkers(t.workers),
	)
	if err := forest.FitContext(ctx, XTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	pred := forest.Predict(XTest)
	r2 := model.R2(yTest, pred)
	a := &artifact.Artifact{
		Version:   artifact.FormatVersion,
		Model:     forest,
		Columns:   columns,
		R2:        &r2,
		RunID:     runID,
		TrainedAt: t.now().UTC(),
		Rows:      len(samples),
	}
	if err := t.saver.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	if t.onTrained != nil {
		t.onTrained(a)
	}

	res := &Result{
		RunID:       runID,
		R2:          r2,
		MAE:         model.MAE(yTest, pred),
		RMSE:        model.RMSE(yTest, pred),
		Columns:     columns,
		Rows:        len(samples),
		TrainRows:   len(XTrain),
		TestRows:    len(XTest),
		Target:      stats.Describe(y),
		Importances: rankImportances(columns, forest.FeatureImportances()),
		Duration:    t.now().Sub(start),
		Artifact:    a,
	}
	log.Info("training finished",
		"r2", res.R2, "mae", res.MAE, "rmse", res.RMSE, "duration", res.Duration)
	return res, nil
}

// observe records the outcome of a run in the metrics and the log.
func (t *Trainer) observe(ctx context.Context, run func() (*Result, error)) (*Result, error) {
	start := t.now()
	res, err := run()
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, dataprep.ErrMissingColumn), errors.Is(err, ErrInsufficientData),
		errors.Is(err, data.ErrEmptyTable), errors.Is(err, data.ErrMalformed):
		outcome = metrics.OutcomeRejected
		logger.FromContext(ctx).Warn("training rejected", "err", err)
	default:
		outcome = metrics.OutcomeError
		logger.FromContext(ctx).Error("training failed", "err", err)
	}
	t.metrics.ObserveRetrain(outcome, t.now().Sub(start))
	return res, err
}

func rankImportances(columns dataprep.Manifest, imp []float64) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(imp))
	for i, v := range imp {
		if i < len(columns) {
			out = append(out, FeatureImportance{Column: columns[i], Importance: v})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
