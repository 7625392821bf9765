package balance

import (
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/rates"
)

type Valuation struct {
	TotalUSD float64
	PerAsset map[model.Asset]float64
	// Gaps are assets with a known balance but no rate; they count as zero.
	Gaps []model.Asset
	// Unavailable are assets whose balance could not be read.
	Unavailable []model.Asset
}

// Valuate converts each balance to whole tokens and multiplies by its USD rate.
func Valuate(b Balances, table rates.Table) Valuation {
	v := Valuation{PerAsset: make(map[model.Asset]float64, len(b.Results))}
	for _, r := range b.Results {
		if r.Err != nil {
			v.Unavailable = append(v.Unavailable, r.Asset)
			continue
		}
		rate, ok := table.Rate(r.Asset)
		if !ok {
			v.Gaps = append(v.Gaps, r.Asset)
			continue
		}
		usd := float64(r.Amount) / model.E8s * rate
		v.PerAsset[r.Asset] = usd
		v.TotalUSD += usd
	}
	return v
}
