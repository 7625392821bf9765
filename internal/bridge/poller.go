package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/clock"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"go.uber.org/zap"
)

const (
	// MinPollInterval is the shortest allowed gap between two status reads.
	MinPollInterval   = 10 * time.Second
	maxPollFailures   = 3
	maxFailureBackoff = 2 * time.Minute
)

// WithdrawalPoller follows one withdrawal until it reaches a terminal state.
type WithdrawalPoller struct {
	source   StatusSource
	interval time.Duration
	metrics  Metrics
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewWithdrawalPoller constructs a poller; intervals below MinPollInterval are raised to it.
func NewWithdrawalPoller(source StatusSource, interval time.Duration, metrics Metrics, logger *zap.Logger) *WithdrawalPoller {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return &WithdrawalPoller{
		source:   source,
		interval: interval,
		metrics:  metrics,
		logger:   logger.Named("withdrawal_poller"),
		sleep:    clock.SleepWithContext,
	}
}

// Watch polls withdrawal id, one request at a time, and calls onChange for
// every forward transition. Backward observations are ignored. It returns the
// last status once the withdrawal is terminal, the bridge reports it unknown,
// ctx is done, or reads keep failing.
func (p *WithdrawalPoller) Watch(ctx context.Context, id uint64, onChange func(WithdrawalStatus)) (WithdrawalStatus, error) {
	logger := p.logger.With(zap.Uint64("id", id))
	var (
		last     WithdrawalStatus
		failures int
	)
	for {
		status, err := p.source.WithdrawalStatus(ctx, id)
		wait := p.interval
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			failures++
			if failures >= maxPollFailures || !errors.Is(err, agent.ErrUnavailable) {
				return last, fmt.Errorf("poll withdrawal %d: %w", id, err)
			}
			wait = clock.Backoff(failures, p.interval, maxFailureBackoff)
			logger.Warn("withdrawal status read failed", zap.Int("failures", failures), zap.Error(err))
		case status.State == WithdrawalUnknown:
			return status, nil
		case last.Before(status):
			failures = 0
			last = status
			p.metrics.ObserveWithdrawalState(string(status.State))
			logger.Info("withdrawal advanced", zap.String("state", string(status.State)), zap.String("txid", status.TxID))
			if onChange != nil {
				onChange(status)
			}
		default:
			failures = 0
			if status.State != last.State {
				logger.Warn("ignoring backward withdrawal transition",
					zap.String("from", string(last.State)),
					zap.String("to", string(status.State)))
			}
		}

		if last.Terminal() {
			return last, nil
		}
		if err := p.sleep(ctx, wait); err != nil {
			return last, err
		}
	}
}

// WithdrawalTracker follows submitted withdrawals in the background, one
// Watch per withdrawal, until ctx is done.
type WithdrawalTracker struct {
	ctx    context.Context
	poller *WithdrawalPoller
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewWithdrawalTracker(ctx context.Context, poller *WithdrawalPoller, logger *zap.Logger) *WithdrawalTracker {
	return &WithdrawalTracker{ctx: ctx, poller: poller, logger: logger.Named("withdrawal_tracker")}
}

// Track starts following withdrawal id and returns immediately.
func (t *WithdrawalTracker) Track(id uint64) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		final, err := t.poller.Watch(t.ctx, id, nil)
		switch {
		case err != nil && t.ctx.Err() == nil:
			t.logger.Warn("stopped following withdrawal", zap.Uint64("id", id), zap.Error(err))
		case err == nil:
			t.logger.Info("withdrawal settled", zap.Uint64("id", id),
				zap.String("state", string(final.State)), zap.String("txid", final.TxID))
		}
	}()
}

// Wait blocks until every tracked withdrawal has stopped being followed.
func (t *WithdrawalTracker) Wait() {
	t.wg.Wait()
}

// DepositPoller periodically asks the bridge to pick up new deposits.
type DepositPoller struct {
	checker  DepositChecker
	interval time.Duration
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewDepositPoller constructs a poller; intervals below MinPollInterval are raised to it.
func NewDepositPoller(checker DepositChecker, interval time.Duration, logger *zap.Logger) *DepositPoller {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return &DepositPoller{
		checker:  checker,
		interval: interval,
		logger:   logger.Named("deposit_poller"),
		sleep:    clock.SleepWithContext,
	}
}

// Run checks deposits of (owner, subaccount) until ctx is done, handing each
// status to onStatus. Failed checks are logged and retried on the next tick.
func (p *DepositPoller) Run(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount, onStatus func(DepositStatus)) error {
	for {
		status, err := p.checker.DepositStatus(ctx, owner, subaccount)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			p.logger.Warn("deposit check failed", zap.Error(err))
		case onStatus != nil:
			onStatus(status)
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil
		}
	}
}
