// Package band derives a heuristic low/high price range from a point
// prediction and the model's held-out R².
package band

const (
	// FallbackPct is used when no quality score is known.
	FallbackPct = 0.10
	MinPct      = 0.05
	MaxPct      = 0.25
	// spread per unit of unexplained variance (1 - R²)
	slope = 0.35
)

// Band is a symmetric price range around a prediction.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Pct  float64 `json:"pct"`
}

// Pct returns the relative half-width for a quality score. A nil score means
// the model quality is unknown.
func Pct(r2 *float64) float64 {
	if r2 == nil {
		return FallbackPct
	}
	return min(MaxPct, max(MinPct, (1-*r2)*slope))
}

// Compute returns the band around price. Low never goes below zero.
func Compute(price float64, r2 *float64) Band {
	pct := Pct(r2)
	delta := price * pct
	return Band{
		Low:  max(0, price-delta),
		High: price + delta,
		Pct:  pct,
	}
}
