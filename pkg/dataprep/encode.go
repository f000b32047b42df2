package dataprep

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"houseprice/pkg/schema"
)

// Manifest is the ordered list of feature columns a model was trained on.
// It is fixed at training time and persisted with the model; vectors are
// always laid out in this order.
type Manifest []string

// ErrBadManifest is returned for empty or duplicated manifests.
var ErrBadManifest = errors.New("dataprep: invalid manifest")

// OneHotName is the column name of a categorical value, e.g. "Neighborhood_NAmes".
func OneHotName(field, value string) string {
	return field + "_" + value
}

// BuildManifest derives the column layout from a training set: numeric
// columns in fixed order, then one column per categorical value actually
// observed, sorted within each field.
func BuildManifest(records []schema.Features) Manifest {
	m := append(Manifest(nil), schema.NumericFields...)
	for _, field := range schema.CategoricalFields {
		seen := map[string]struct{}{}
		for _, r := range records {
			v, _ := r.Category(field)
			seen[v] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			m = append(m, OneHotName(field, v))
		}
	}
	return m
}

// Validate rejects empty manifests and duplicate column names.
func (m Manifest) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: no columns", ErrBadManifest)
	}
	seen := make(map[string]struct{}, len(m))
	for _, c := range m {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrBadManifest, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// values computes the sparse name->value map of a record.
func values(r schema.Features) map[string]float64 {
	out := make(map[string]float64, len(schema.NumericFields)+len(schema.CategoricalFields))
	for _, field := range schema.NumericFields {
		v, _ := r.Numeric(field)
		out[field] = v
	}
	for _, field := range schema.CategoricalFields {
		v, _ := r.Category(field)
		out[OneHotName(field, v)] = 1
	}
	return out
}

// Encode lays a record out along the manifest. Columns the record does not
// produce are zero, so a categorical value the manifest has never seen
// contributes an all-zero block.
func (m Manifest) Encode(r schema.Features) []float64 {
	vals := values(r)
	vec := make([]float64, len(m))
	for i, col := range m {
		vec[i] = vals[col]
	}
	return vec
}

// Unseen returns the one-hot columns r would set that the manifest lacks.
func (m Manifest) Unseen(r schema.Features) []string {
	var out []string
	for _, field := range schema.CategoricalFields {
		v, _ := r.Category(field)
		if name := OneHotName(field, v); !slices.Contains(m, name) {
			out = append(out, name)
		}
	}
	return out
}

// EncodeAll encodes every sample and returns the design matrix and targets.
func EncodeAll(samples []Sample, m Manifest) ([][]float64, []float64) {
	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		X[i] = m.Encode(s.Features)
		y[i] = s.Target
	}
	return X, y
}

// Records strips the targets from samples.
func Records(samples []Sample) []schema.Features {
	out := make([]schema.Features, len(samples))
	for i, s := range samples {
		out[i] = s.Features
	}
	return out
}
