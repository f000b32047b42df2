package model

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	Workers         int // concurrent tree fits, 0 => GOMAXPROCS

	// Internal state
	Trees []*DecisionTreeRegressor
}

// RandomForestOption functional config for RandomForestRegressor
type RandomForestOption func(*RandomForestRegressor)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MinSamplesSplit = n }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.Workers = n }
}

// NewRandomForestRegressor initializes the forest with sensible defaults.
func NewRandomForestRegressor(opts ...RandomForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the forest. See FitContext.
func (rf *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains NEstimators trees concurrently. Tree i draws its
// bootstrap sample and its feature subsets from RandomState+i, so the fitted
// forest does not depend on scheduling. Cancelling ctx stops trees that have
// not started yet.
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: NEstimators must be positive")
	}

	trees := make([]*DecisionTreeRegressor, rf.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rf.workers())

	for i := range rf.NEstimators {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := rf.RandomState + int64(i)
			treeRand := rand.New(rand.NewSource(seed))

			// index slice, not a copy of the data
			sampleIndices := make([]int, n)
			for j := range n {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeRegressor(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(rf.MaxFeatures),
				WithRandomState(seed),
			)
			if err := tree.FitIndices(X, y, sampleIndices); err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.Trees = trees
	return nil
}

// parallelPredictRows is the batch size from which Predict fans out over
// trees; smaller batches, such as a single request, run inline.
const parallelPredictRows = 64

// Predict returns the mean of all tree predictions for each row.
func (rf *RandomForestRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 || len(X) == 0 {
		return out
	}

	perTree := make([][]float64, len(rf.Trees))
	if len(X) < parallelPredictRows {
		for i, tree := range rf.Trees {
			perTree[i] = tree.Predict(X)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(rf.workers())
		for i, tree := range rf.Trees {
			g.Go(func() error {
				perTree[i] = tree.Predict(X)
				return nil
			})
		}
		_ = g.Wait()
	}

	// reduce in tree order so the sum does not depend on scheduling
	for _, preds := range perTree {
		for r, v := range preds {
			out[r] += v
		}
	}
	k := float64(len(rf.Trees))
	for r := range out {
		out[r] /= k
	}
	return out
}

func (rf *RandomForestRegressor) workers() int {
	if rf.Workers > 0 {
		return rf.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// FeatureImportances averages the normalised importances of the trees.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	var out []float64
	for _, t := range rf.Trees {
		imp := t.FeatureImportances()
		if out == nil {
			out = make([]float64, len(imp))
		}
		for i, v := range imp {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.Trees))
	}
	return out
}
