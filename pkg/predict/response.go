package predict

import (
	"houseprice/pkg/band"
	"houseprice/pkg/schema"
)

// Response renders p in the wire shape. The band is attached when withBand
// is set.
func (p *Prediction) Response(withBand bool) schema.PredictResponse {
	resp := schema.PredictResponse{
		PredictedPrice: p.Price,
		Currency:       schema.Currency,
		R2Meta:         p.R2,
	}
	if withBand {
		b := band.Compute(p.Price, p.R2)
		resp.Band = &b
	}
	for _, col := range p.Unseen {
		resp.Warnings = append(resp.Warnings, "unseen category "+col+" ignored by the model")
	}
	return resp
}
