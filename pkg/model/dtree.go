package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math/rand"
	"sort"
	"time"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeRegressor is a CART-style regression tree minimising squared error.
type DecisionTreeRegressor struct {
	// Hyperparameters / options
	MaxDepth        int   // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit int   // minimum samples to attempt a split
	MinSamplesLeaf  int   // minimum samples required in each leaf
	MaxFeatures     int   // 0 => use all features, >0 => number of features to sample per split
	RandomState     int64 // seed for feature subsampling

	// internals
	root        *dtNode
	nFeatures   int
	importances []float64 // total squared-error reduction per feature
}

// dtNode holds a node in the tree. Fields are exported for gob.
type dtNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold => Left
	Left      *dtNode
	Right     *dtNode
	N         int     // training samples that reached the node
	Value     float64 // mean target of those samples
}

// Option functional config
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a regressor with sensible defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	d := &DecisionTreeRegressor{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / Predict / Save/Load
// ---------------------------

// Fit trains the tree on X (n x p) and targets y.
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx)
}

// FitIndices trains on the rows listed in idx. Repeated indices weight a row
// accordingly, which is how bootstrap samples are fitted without copying X.
func (t *DecisionTreeRegressor) FitIndices(X [][]float64, y []float64, idx []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}
	for _, i := range idx {
		if i < 0 || i >= len(X) {
			return errors.New("dtree: sample index out of range")
		}
	}

	t.nFeatures = p
	t.importances = make([]float64, p)
	rnd := rand.New(rand.NewSource(t.RandomState))
	t.root = t.buildNode(X, y, append([]int(nil), idx...), 0, rnd)
	return nil
}

// Predict returns the leaf mean reached by each row of X.
func (t *DecisionTreeRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.predictSingle(X[i])
	}
	return out
}

// FeatureImportances returns the share of total squared-error reduction
// contributed by each feature. Nil before Fit.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	if t.importances == nil {
		return nil
	}
	out := make([]float64, len(t.importances))
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}

// Depth returns the depth of the deepest leaf.
func (t *DecisionTreeRegressor) Depth() int {
	var walk func(n *dtNode) int
	walk = func(n *dtNode) int {
		if n == nil || n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(t.root)
}

// treeState is the gob form of a tree.
type treeState struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int64
	NFeatures       int
	Importances     []float64
	Root            *dtNode
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeRegressor) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeState{
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		RandomState:     t.RandomState,
		NFeatures:       t.nFeatures,
		Importances:     t.importances,
		Root:            t.root,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeRegressor) UnmarshalBinary(data []byte) error {
	var s treeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	t.MaxDepth = s.MaxDepth
	t.MinSamplesSplit = s.MinSamplesSplit
	t.MinSamplesLeaf = s.MinSamplesLeaf
	t.MaxFeatures = s.MaxFeatures
	t.RandomState = s.RandomState
	t.nFeatures = s.NFeatures
	t.importances = s.Importances
	t.root = s.Root
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found for one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value with its target.
type pair struct {
	v float64
	y float64
}

func (t *DecisionTreeRegressor) buildNode(X [][]float64, y []float64, idx []int, depth int, rnd *rand.Rand) *dtNode {
	n := len(idx)
	mean, constant := nodeStats(y, idx)
	node := &dtNode{Leaf: true, N: n, Value: mean}

	// make leaf if pure or too few samples or depth reached
	if constant || n < t.MinSamplesSplit || n < 2*max(1, t.MinSamplesLeaf) {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	// determine features to try
	p := t.nFeatures
	featIndices := make([]int, p)
	for j := range p {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	best := splitResult{feature: -1}
	pairs := make([]pair, n)
	for _, f := range featIndices {
		r := t.findBestSplitForFeature(X, y, idx, f, mean, pairs)
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}

	// Decide whether to split
	if best.feature == -1 || best.gain <= 0 {
		return node
	}
	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	t.importances[best.feature] += best.gain
	node.Leaf = false
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = t.buildNode(X, y, left, depth+1, rnd)
	node.Right = t.buildNode(X, y, right, depth+1, rnd)
	return node
}

// findBestSplitForFeature scans every threshold between distinct sorted
// values of feature f. Targets are centred on the node mean so the running
// sums stay small for large prices.
func (t *DecisionTreeRegressor) findBestSplitForFeature(X [][]float64, y []float64, idx []int, f int, mean float64, pairs []pair) splitResult {
	result := splitResult{feature: -1}
	n := len(idx)
	sumAll, sqAll := 0.0, 0.0
	for k, i := range idx {
		d := y[i] - mean
		pairs[k] = pair{v: X[i][f], y: d}
		sumAll += d
		sqAll += d * d
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })
	parentSSE := sqAll - sumAll*sumAll/float64(n)

	minLeaf := max(1, t.MinSamplesLeaf)
	sumL, sqL := 0.0, 0.0
	for s := 1; s < n; s++ {
		d := pairs[s-1].y
		sumL += d
		sqL += d * d
		if pairs[s].v == pairs[s-1].v {
			continue
		}
		nL, nR := float64(s), float64(n-s)
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		sumR, sqR := sumAll-sumL, sqAll-sqL
		childSSE := (sqL - sumL*sumL/nL) + (sqR - sumR*sumR/nR)
		gain := parentSSE - childSSE
		if gain > result.gain {
			thr := (pairs[s-1].v + pairs[s].v) / 2.0
			if thr >= pairs[s].v {
				thr = pairs[s-1].v
			}
			result = splitResult{gain: gain, feature: f, threshold: thr}
		}
	}
	return result
}

// nodeStats returns the mean of y over idx and whether all targets are equal.
func nodeStats(y []float64, idx []int) (mean float64, constant bool) {
	if len(idx) == 0 {
		return 0, true
	}
	sum := 0.0
	lo, hi := y[idx[0]], y[idx[0]]
	for _, i := range idx {
		sum += y[i]
		lo = min(lo, y[i])
		hi = max(hi, y[i])
	}
	return sum / float64(len(idx)), lo == hi
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeRegressor) predictSingle(x []float64) float64 {
	node := t.root
	if node == nil {
		return 0
	}
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}
