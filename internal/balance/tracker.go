package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/clock"
	"github.com/goodnatureofminers/icwallet/internal/rates"
	"github.com/goodnatureofminers/icwallet/internal/session"
	"go.uber.org/zap"
)

// ErrStale is returned when the identity changed while a refresh was in flight.
var ErrStale = errors.New("identity changed during refresh")

type Snapshot struct {
	Balances  Balances
	Valuation Valuation
	// RatesErr is set when no rate table could be obtained; every asset is then a gap.
	RatesErr  error
	UpdatedAt time.Time

	token session.Token
}

// Tracker keeps the latest snapshot for the signed-in identity.
type Tracker struct {
	aggregator *Aggregator
	session    Session
	rates      RateSource
	metrics    Metrics
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error

	mu   sync.RWMutex
	snap *Snapshot
}

func NewTracker(aggregator *Aggregator, sess Session, rateSource RateSource, metrics Metrics, logger *zap.Logger) *Tracker {
	return &Tracker{
		aggregator: aggregator,
		session:    sess,
		rates:      rateSource,
		metrics:    metrics,
		logger:     logger.Named("balance_tracker"),
		now:        time.Now,
		sleep:      clock.SleepWithContext,
	}
}

// Refresh fetches balances and rates for the current identity. Results are dropped
// with ErrStale if the identity changed before they arrived.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	tok, err := t.session.Current()
	if err != nil {
		return Snapshot{}, err
	}
	ctx, cancel := tok.Bind(ctx)
	defer cancel()

	balances := t.aggregator.FetchAll(ctx, tok.Principal())
	table, ratesErr := t.rates.Get(ctx)
	if ratesErr != nil {
		t.logger.Warn("valuing without exchange rates", zap.Error(ratesErr))
		table = rates.Table{}
	}

	if !t.session.IsCurrent(tok) {
		t.metrics.ObserveStaleDiscard()
		return Snapshot{}, fmt.Errorf("%w: epoch %d", ErrStale, tok.Epoch())
	}

	snap := Snapshot{
		Balances:  balances,
		Valuation: Valuate(balances, table),
		RatesErr:  ratesErr,
		UpdatedAt: t.now(),
		token:     tok,
	}
	t.mu.Lock()
	t.snap = &snap
	t.mu.Unlock()
	return snap, nil
}

// Snapshot returns the last snapshot if it belongs to the current identity.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	t.mu.RLock()
	snap := t.snap
	t.mu.RUnlock()

	if snap == nil || !t.session.IsCurrent(snap.token) {
		return Snapshot{}, false
	}
	return *snap, true
}

// Run refreshes every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.logger.Debug("balance refresh skipped", zap.Error(err))
		}
		if err := t.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}
