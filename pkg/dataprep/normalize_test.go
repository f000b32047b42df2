package dataprep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice/pkg/data"
	"houseprice/pkg/schema"
)

const rawHeader = "price,bathrooms,sqft_living,sqft_basement,yr_built,floors,condition,city,statezip\n"

func table(t *testing.T, csv string) *data.Table {
	t.Helper()
	tbl, err := data.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestNormalize(t *testing.T) {
	t.Run("Should map a raw row onto the feature record", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader+"313000,1.5,1340,0,1955,1.5,3,Shoreline,WA 98133\n"))
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, 313000.0, samples[0].Target)
		assert.Equal(t, schema.Features{
			GrLivArea: 1340, TotalBsmtSF: 0, GarageCars: 0, FullBath: 2,
			YearBuilt: 1955, OverallQual: 6, Neighborhood: "Shoreline", HouseStyle: "1.5Fin",
		}, samples[0].Features)
	})

	t.Run("Should fail on the first missing required column", func(t *testing.T) {
		_, err := Normalize(table(t, "price,bathrooms,sqft_living,sqft_basement,floors,condition,city\n1,1,1,1,1,1,x\n"))
		require.ErrorIs(t, err, ErrMissingColumn)
		var mc *MissingColumnError
		require.ErrorAs(t, err, &mc)
		assert.Equal(t, "yr_built", mc.Column)
		assert.Contains(t, err.Error(), "yr_built")
	})

	t.Run("Should require a neighborhood source", func(t *testing.T) {
		_, err := Normalize(table(t, "price,bathrooms,sqft_living,sqft_basement,yr_built,floors,condition\n1,1,1,1,1,1,1\n"))
		var mc *MissingColumnError
		require.ErrorAs(t, err, &mc)
		assert.Equal(t, "city", mc.Column)
		assert.Equal(t, []string{"statezip"}, mc.Alternatives)
	})

	t.Run("Should fall back to statezip when city is absent", func(t *testing.T) {
		csv := "price,bathrooms,sqft_living,sqft_basement,yr_built,floors,condition,statezip\n" +
			"1,1,1000,0,2000,1,3,WA 98001\n"
		samples, err := Normalize(table(t, csv))
		require.NoError(t, err)
		assert.Equal(t, "WA 98001", samples[0].Features.Neighborhood)
	})

	t.Run("Should keep the neighborhood text verbatim", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader+`1,1,1000,0,2000,1,3," seattle ",x`+"\n"))
		require.NoError(t, err)
		assert.Equal(t, " seattle ", samples[0].Features.Neighborhood)
	})

	t.Run("Should keep a leading space in the city", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader+"1,1,1000,0,2000,1,3, Seattle,x\n"))
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, " Seattle", samples[0].Features.Neighborhood)
		assert.Contains(t, BuildManifest(Records(samples)), "Neighborhood_ Seattle")
	})

	t.Run("Should name a missing neighborhood nan", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader+"1,1,1000,0,2000,1,3,,x\n2,1,1000,0,2000,1,3,NA,x\n"))
		require.NoError(t, err)
		require.Len(t, samples, 2)
		for _, s := range samples {
			assert.Equal(t, MissingCategory, s.Features.Neighborhood)
		}
		assert.Contains(t, BuildManifest(Records(samples)), "Neighborhood_nan")
	})

	t.Run("Should default a missing basement to zero", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader+"1,1,1000,,2000,1,3,Kent,x\n"))
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, 0.0, samples[0].Features.TotalBsmtSF)
	})

	t.Run("Should drop rows missing essential numeric values", func(t *testing.T) {
		csv := rawHeader +
			",1,1000,0,2000,1,3,Kent,x\n" + // no price
			"1,1,NA,0,2000,1,3,Kent,x\n" + // no living area
			"1,,1000,0,2000,1,3,Kent,x\n" + // no baths
			"1,1,1000,0,,1,3,Kent,x\n" + // no year
			"1,1,1000,0,2000,1,nan,Kent,x\n" + // no condition
			"1,1,1000,abc,2000,1,3,Kent,x\n" + // unparsable basement
			"1,1,1000,0,2000,,3,,x\n" // categorical gaps are kept
		samples, err := Normalize(table(t, csv))
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, "", samples[0].Features.Neighborhood)
		assert.Equal(t, "SLvl", samples[0].Features.HouseStyle)
	})

	t.Run("Should return no samples for a header-only table", func(t *testing.T) {
		samples, err := Normalize(table(t, rawHeader))
		require.NoError(t, err)
		assert.Empty(t, samples)
	})
}

func TestFloorsToStyle(t *testing.T) {
	t.Run("Should map known floor counts and default the rest", func(t *testing.T) {
		cases := map[string]string{
			"2.0":       "2Story",
			"2":         "2Story",
			"1.5":       "1.5Fin",
			"1.5000001": "1.5Fin",
			"1":         "1Story",
			"3.0":       "SLvl",
			"2.5":       "SLvl",
			"two":       "SLvl",
			"":          "SLvl",
		}
		for in, want := range cases {
			assert.Equal(t, want, FloorsToStyle(in), in)
		}
	})
}

func TestConditionToQuality(t *testing.T) {
	t.Run("Should double and clamp the condition score", func(t *testing.T) {
		assert.Equal(t, 10, ConditionToQuality(5))
		assert.Equal(t, 2, ConditionToQuality(1))
		assert.Equal(t, 6, ConditionToQuality(3))
		assert.Equal(t, 1, ConditionToQuality(0))
		assert.Equal(t, 10, ConditionToQuality(7))
		assert.Equal(t, 4, ConditionToQuality(2.25))
	})
}

func TestBathroomsToFullBath(t *testing.T) {
	t.Run("Should round half to even and clamp", func(t *testing.T) {
		assert.Equal(t, 2, BathroomsToFullBath(2.25))
		assert.Equal(t, 2, BathroomsToFullBath(2.5))
		assert.Equal(t, 4, BathroomsToFullBath(3.5))
		assert.Equal(t, 5, BathroomsToFullBath(8))
		assert.Equal(t, 0, BathroomsToFullBath(-1))
	})
}
