package model

import "encoding/gob"

// Regressor is a supervised model with a continuous target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

func init() {
	// concrete types that may sit behind a persisted Regressor
	gob.Register(&RandomForestRegressor{})
	gob.Register(&DecisionTreeRegressor{})
	gob.Register(&ConstantRegressor{})
}
