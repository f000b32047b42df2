package schema

import "houseprice/pkg/band"

// Field names as they appear in prediction requests and in the column manifest.
const (
	FieldGrLivArea    = "GrLivArea"
	FieldTotalBsmtSF  = "TotalBsmtSF"
	FieldGarageCars   = "GarageCars"
	FieldFullBath     = "FullBath"
	FieldYearBuilt    = "YearBuilt"
	FieldOverallQual  = "OverallQual"
	FieldNeighborhood = "Neighborhood"
	FieldHouseStyle   = "HouseStyle"
)

// NumericFields lists the numeric features in vector order.
var NumericFields = []string{
	FieldGrLivArea, FieldTotalBsmtSF, FieldGarageCars, FieldFullBath, FieldYearBuilt, FieldOverallQual,
}

// CategoricalFields lists the one-hot expanded features in vector order.
var CategoricalFields = []string{FieldNeighborhood, FieldHouseStyle}

// Features is one normalized property record. It is what the encoder consumes,
// whether it came from a validated request or from a training CSV row.
type Features struct {
	GrLivArea    float64
	TotalBsmtSF  float64
	GarageCars   int
	FullBath     int
	YearBuilt    int
	OverallQual  int
	Neighborhood string
	HouseStyle   string
}

// Numeric returns the value of a numeric field, or false if name is not one.
func (f Features) Numeric(name string) (float64, bool) {
	switch name {
	case FieldGrLivArea:
		return f.GrLivArea, true
	case FieldTotalBsmtSF:
		return f.TotalBsmtSF, true
	case FieldGarageCars:
		return float64(f.GarageCars), true
	case FieldFullBath:
		return float64(f.FullBath), true
	case FieldYearBuilt:
		return float64(f.YearBuilt), true
	case FieldOverallQual:
		return float64(f.OverallQual), true
	}
	return 0, false
}

// Category returns the value of a categorical field, or false if name is not one.
func (f Features) Category(name string) (string, bool) {
	switch name {
	case FieldNeighborhood:
		return f.Neighborhood, true
	case FieldHouseStyle:
		return f.HouseStyle, true
	}
	return "", false
}

// Currency is the only currency the service quotes in.
const Currency = "USD"

// PredictResponse is the canonical prediction output.
type PredictResponse struct {
	PredictedPrice float64    `json:"predicted_price"`
	Currency       string     `json:"currency"`
	R2Meta         *float64   `json:"r2_meta,omitempty"`
	Band           *band.Band `json:"band,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}
