// Package rates provides USD exchange rates for the supported assets.
package rates

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
)

// Table maps assets to their USD price at FetchedAt.
type Table struct {
	Rates     map[model.Asset]float64
	FetchedAt time.Time
}

// Rate returns the USD price of asset, if known.
func (t Table) Rate(asset model.Asset) (float64, bool) {
	r, ok := t.Rates[asset]
	return r, ok
}

// Age is how old the table is at now.
func (t Table) Age(now time.Time) time.Duration {
	return now.Sub(t.FetchedAt)
}
