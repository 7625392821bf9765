// Package balance reads every ledger balance of an owner at once and values the total in USD.
package balance

import (
	"context"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one asset's read. Err is set when the read failed.
type Result struct {
	Asset  model.Asset
	Amount uint64
	Err    error
}

// Balances holds one Result per configured asset in display order.
type Balances struct {
	Owner   identity.Principal
	Results []Result
}

// Get returns the result for asset.
func (b Balances) Get(asset model.Asset) (Result, bool) {
	for _, r := range b.Results {
		if r.Asset == asset {
			return r, true
		}
	}
	return Result{}, false
}

// Failed lists assets whose read failed.
func (b Balances) Failed() []model.Asset {
	var out []model.Asset
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r.Asset)
		}
	}
	return out
}

type Aggregator struct {
	source  Source
	metrics Metrics
	logger  *zap.Logger
}

func NewAggregator(source Source, metrics Metrics, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		source:  source,
		metrics: metrics,
		logger:  logger.Named("balance"),
	}
}

// FetchAll reads the default account balance of owner on every ledger concurrently.
// A failing ledger only marks its own Result.
func (a *Aggregator) FetchAll(ctx context.Context, owner identity.Principal) Balances {
	started := time.Now()
	assets := a.source.Assets()
	results := make([]Result, len(assets))
	account := ledger.Account{Owner: owner}

	var g errgroup.Group
	for i, asset := range assets {
		g.Go(func() error {
			amount, err := a.source.BalanceOf(ctx, asset, account)
			a.metrics.ObserveAsset(asset, err)
			if err != nil {
				a.logger.Warn("balance read failed", zap.String("asset", string(asset)), zap.Error(err))
			}
			results[i] = Result{Asset: asset, Amount: amount, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	b := Balances{Owner: owner, Results: results}
	a.metrics.ObserveFetch(len(b.Failed()) > 0, started)
	return b
}
