package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
)

// tickSymbols maps market symbols to assets. Order matters: the first symbol a pair key contains wins.
var tickSymbols = []struct {
	symbol string
	asset  model.Asset
}{
	{symbol: "ICP", asset: model.ICP},
	{symbol: "BTC", asset: model.CkBTC},
	{symbol: "ETH", asset: model.CkETH},
	{symbol: "SOL", asset: model.CkSOL},
}

type tickDocument struct {
	Data map[string]struct {
		Close *float64 `json:"close"`
	} `json:"data"`
}

// ParseTicks extracts USD prices from a tick document of the form
// {"data": {"ICP/USD": {"close": 7.1}, ...}}. Pairs are matched case-insensitively
// on the symbol and "USD"; ticks without a positive close are ignored.
func ParseTicks(payload string) (map[model.Asset]float64, error) {
	var doc tickDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("parse tick document: %w", err)
	}

	out := make(map[model.Asset]float64)
	// sorted so a document listing several pairs per asset resolves the same way every time
	for _, key := range slices.Sorted(maps.Keys(doc.Data)) {
		upper := strings.ToUpper(key)
		if !strings.Contains(upper, "USD") {
			continue
		}
		for _, s := range tickSymbols {
			if !strings.Contains(upper, s.symbol) {
				continue
			}
			if c := doc.Data[key].Close; c != nil && *c > 0 {
				out[s.asset] = *c
			}
			break
		}
	}
	return out, nil
}

// TickSource combines market ticks with fixed rates for assets that are not traded.
type TickSource struct {
	provider TickProvider
	fixed    map[model.Asset]float64
	now      func() time.Time
}

func NewTickSource(provider TickProvider, fixed map[model.Asset]float64) *TickSource {
	return &TickSource{
		provider: provider,
		fixed:    maps.Clone(fixed),
		now:      time.Now,
	}
}

// Fetch implements Source.
func (s *TickSource) Fetch(ctx context.Context) (Table, error) {
	payload, err := s.provider.CurrentRates(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("fetch ticks: %w", err)
	}
	parsed, err := ParseTicks(payload)
	if err != nil {
		return Table{}, err
	}
	for asset, rate := range s.fixed {
		parsed[asset] = rate
	}
	return Table{Rates: parsed, FetchedAt: s.now()}, nil
}
