package dataprep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"houseprice/pkg/data"
	"houseprice/pkg/schema"
)

// Raw column names of the supported training CSV.
const (
	ColPrice        = "price"
	ColBathrooms    = "bathrooms"
	ColSqftLiving   = "sqft_living"
	ColSqftBasement = "sqft_basement"
	ColYrBuilt      = "yr_built"
	ColFloors       = "floors"
	ColCondition    = "condition"
	ColCity         = "city"
	ColStatezip     = "statezip"
)

// RequiredColumns are checked in this order; the first absent one is reported.
var RequiredColumns = []string{
	ColPrice, ColBathrooms, ColSqftLiving, ColSqftBasement, ColYrBuilt, ColFloors, ColCondition,
}

// NeighborhoodSources are the columns that can stand in for Neighborhood, by preference.
var NeighborhoodSources = []string{ColCity, ColStatezip}

// ErrMissingColumn is the sentinel behind MissingColumnError.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError names a required raw column that is absent. When
// Alternatives is set, any one of Column or the alternatives would do.
type MissingColumnError struct {
	Column       string
	Alternatives []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Alternatives) > 0 {
		return fmt.Sprintf("%s: csv needs one of %s", ErrMissingColumn,
			strings.Join(append([]string{e.Column}, e.Alternatives...), ", "))
	}
	return fmt.Sprintf("%s: csv missing required column %s", ErrMissingColumn, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// Sample is a normalized record paired with its sale price.
type Sample struct {
	Features schema.Features
	Target   float64
}

const floorTolerance = 1e-6

// MissingCategory stands in for an absent neighborhood cell, so such rows
// share one "Neighborhood_nan" column instead of an empty suffix.
const MissingCategory = "nan"

// FloorsToStyle maps a raw floor count onto the house style vocabulary.
// Anything that is not 1, 1.5 or 2 floors, including garbage, is split level.
func FloorsToStyle(raw string) string {
	v, ok := parseNumber(raw)
	switch {
	case !ok:
		return string(schema.SplitLevel)
	case math.Abs(v-2.0) < floorTolerance:
		return string(schema.TwoStory)
	case math.Abs(v-1.5) < floorTolerance:
		return string(schema.OneHalfFin)
	case math.Abs(v-1.0) < floorTolerance:
		return string(schema.OneStory)
	}
	return string(schema.SplitLevel)
}

// ConditionToQuality remaps a 1-5 condition score onto the 1-10 quality scale.
func ConditionToQuality(condition float64) int {
	return int(clamp(math.RoundToEven(condition*2), 1, 10))
}

// BathroomsToFullBath rounds a possibly fractional bathroom count.
func BathroomsToFullBath(bathrooms float64) int {
	return int(clamp(math.RoundToEven(bathrooms), 0, 5))
}

// Normalize maps a foreign housing table onto feature records. Missing
// required columns fail the whole table; rows lacking an essential numeric
// value are dropped.
func Normalize(t *data.Table) ([]Sample, error) {
	for _, c := range RequiredColumns {
		if !t.Has(c) {
			return nil, &MissingColumnError{Column: c}
		}
	}
	nbSource := ""
	for _, c := range NeighborhoodSources {
		if t.Has(c) {
			nbSource = c
			break
		}
	}
	if nbSource == "" {
		return nil, &MissingColumnError{Column: NeighborhoodSources[0], Alternatives: NeighborhoodSources[1:]}
	}

	out := make([]Sample, 0, t.Len())
	for r := range t.Len() {
		s, ok := normalizeRow(t, r, nbSource)
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func normalizeRow(t *data.Table, r int, nbSource string) (Sample, bool) {
	price, ok := parseNumber(t.Value(r, ColPrice))
	if !ok {
		return Sample{}, false
	}
	living, ok := parseNumber(t.Value(r, ColSqftLiving))
	if !ok {
		return Sample{}, false
	}
	basement, ok := basementArea(t.Value(r, ColSqftBasement))
	if !ok {
		return Sample{}, false
	}
	baths, ok := parseNumber(t.Value(r, ColBathrooms))
	if !ok {
		return Sample{}, false
	}
	year, ok := parseNumber(t.Value(r, ColYrBuilt))
	if !ok {
		return Sample{}, false
	}
	condition, ok := parseNumber(t.Value(r, ColCondition))
	if !ok {
		return Sample{}, false
	}
	return Sample{
		Target: price,
		Features: schema.Features{
			GrLivArea:    living,
			TotalBsmtSF:  basement,
			GarageCars:   0, // not present in this source
			FullBath:     BathroomsToFullBath(baths),
			YearBuilt:    int(math.Trunc(year)),
			OverallQual:  ConditionToQuality(condition),
			Neighborhood: neighborhood(t.Value(r, nbSource)),
			HouseStyle:   FloorsToStyle(t.Value(r, ColFloors)),
		},
	}, true
}

// neighborhood keeps the cell text verbatim, whitespace included, unless it is
// exactly a missing marker.
func neighborhood(raw string) string {
	if isMissingMarker(raw) {
		return MissingCategory
	}
	return raw
}

// basementArea treats an absent basement as zero; a present but unparsable
// value is still a missing value.
func basementArea(raw string) (float64, bool) {
	if isMissing(raw) {
		return 0, true
	}
	return parseNumber(raw)
}

func isMissing(raw string) bool {
	return isMissingMarker(strings.TrimSpace(raw))
}

func isMissingMarker(raw string) bool {
	switch raw {
	case "", "NA", "NaN", "nan", "null", "None":
		return true
	}
	return false
}

func parseNumber(raw string) (float64, bool) {
	if isMissing(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}
