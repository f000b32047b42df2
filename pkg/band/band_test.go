package band

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestCompute(t *testing.T) {
	t.Run("Should derive spread from R2", func(t *testing.T) {
		b := Compute(200000, ptr(0.82))
		assert.InDelta(t, 0.063, b.Pct, 1e-9)
		assert.InDelta(t, 187400, b.Low, 1e-6)
		assert.InDelta(t, 212600, b.High, 1e-6)
	})

	t.Run("Should fall back to ten percent without R2", func(t *testing.T) {
		b := Compute(200000, nil)
		assert.InDelta(t, 0.10, b.Pct, 1e-12)
		assert.InDelta(t, 180000, b.Low, 1e-6)
		assert.InDelta(t, 220000, b.High, 1e-6)
	})

	t.Run("Should clamp spread to the upper bound for poor models", func(t *testing.T) {
		assert.Equal(t, MaxPct, Compute(100, ptr(-3)).Pct)
		assert.Equal(t, MaxPct, Compute(100, ptr(math.Inf(-1))).Pct)
	})

	t.Run("Should clamp spread to the lower bound for near perfect models", func(t *testing.T) {
		assert.Equal(t, MinPct, Compute(100, ptr(0.99)).Pct)
		assert.Equal(t, MinPct, Compute(100, ptr(1)).Pct)
	})

	t.Run("Should never report a negative low", func(t *testing.T) {
		b := Compute(-50, nil)
		assert.Equal(t, 0.0, b.Low)
	})
}
