package model

import (
	"errors"

	"houseprice/pkg/stats"
)

// ConstantRegressor predicts one value for every row: the training mean, or
// Value as given when it was never fitted.
type ConstantRegressor struct {
	Value float64
}

// NewConstantRegressor returns a model that predicts v.
func NewConstantRegressor(v float64) *ConstantRegressor {
	return &ConstantRegressor{Value: v}
}

// Fit sets Value to the mean of y.
func (c *ConstantRegressor) Fit(X [][]float64, y []float64) error {
	if len(y) == 0 {
		return errors.New("constant: empty y")
	}
	if len(X) != len(y) {
		return errors.New("constant: X and y length mismatch")
	}
	c.Value = stats.Mean(y)
	return nil
}

func (c *ConstantRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = c.Value
	}
	return out
}
