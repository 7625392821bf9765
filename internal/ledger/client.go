// Package ledger is a client for fungible token ledgers speaking the ICRC-1 interface.
package ledger

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
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/pkg/safe"
	"go.uber.org/zap"
)

const (
	defaultReadAttempts = 3
	defaultRetryBackoff = 250 * time.Millisecond
	maxRetryBackoff     = 2 * time.Second
)

// Config describes one ledger endpoint.
type Config struct {
	Asset    model.Asset
	Canister identity.Principal
	// ReadAttempts bounds tries for read-only calls; state-changing calls are tried once.
	ReadAttempts int
	RetryBackoff time.Duration
}

// TransferArgs is the request for Transfer. CreatedAt must be fresh for every user-initiated send.
type TransferArgs struct {
	FromSubaccount *accountid.Subaccount
	To             Account
	Amount         uint64
	Fee            *uint64
	Memo           []byte
	CreatedAt      time.Time
}

// Metadata is the static description of a ledger.
type Metadata struct {
	Fee      uint64
	Decimals uint8
	Name     string
	Symbol   string
}

// Client talks to one ledger. The same type serves every asset; only Config differs.
type Client struct {
	caller   Caller
	asset    model.Asset
	canister identity.Principal
	metrics  Metrics
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error

	fee      cached[uint64]
	decimals cached[uint8]
	name     cached[string]
	symbol   cached[string]
}

// NewClient constructs a Client for cfg.
func NewClient(caller Caller, cfg Config, metrics Metrics, logger *zap.Logger) *Client {
	attempts := cfg.ReadAttempts
	if attempts <= 0 {
		attempts = defaultReadAttempts
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Client{
		caller:   caller,
		asset:    cfg.Asset,
		canister: cfg.Canister,
		metrics:  metrics,
		logger:   logger.Named("ledger").With(zap.String("asset", string(cfg.Asset))),
		attempts: attempts,
		backoff:  backoff,
		sleep:    clock.SleepWithContext,
	}
}

// Asset returns the asset this client serves.
func (c *Client) Asset() model.Asset {
	return c.asset
}

// BalanceOf returns the balance of account in base units.
func (c *Client) BalanceOf(ctx context.Context, account Account) (uint64, error) {
	var balance agent.Nat
	if err := c.query(ctx, "balance_of", "icrc1_balance_of", []any{account}, &balance); err != nil {
		return 0, err
	}
	return uint64(balance), nil
}

// Fee returns the ledger's transfer fee, cached after the first success.
func (c *Client) Fee(ctx context.Context) (uint64, error) {
	return c.fee.get(ctx, func(ctx context.Context) (uint64, error) {
		var fee agent.Nat
		if err := c.query(ctx, "fee", "icrc1_fee", nil, &fee); err != nil {
			return 0, err
		}
		return uint64(fee), nil
	})
}

// Decimals returns the number of fractional digits of the token.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	return c.decimals.get(ctx, func(ctx context.Context) (uint8, error) {
		var decimals agent.Nat
		if err := c.query(ctx, "decimals", "icrc1_decimals", nil, &decimals); err != nil {
			return 0, err
		}
		d, err := safe.Uint8(uint64(decimals))
		if err != nil {
			return 0, fmt.Errorf("icrc1_decimals: %w", err)
		}
		return d, nil
	})
}

// Name returns the token name.
func (c *Client) Name(ctx context.Context) (string, error) {
	return c.name.get(ctx, func(ctx context.Context) (string, error) {
		var name string
		err := c.query(ctx, "name", "icrc1_name", nil, &name)
		return name, err
	})
}

// Symbol returns the token symbol.
func (c *Client) Symbol(ctx context.Context) (string, error) {
	return c.symbol.get(ctx, func(ctx context.Context) (string, error) {
		var symbol string
		err := c.query(ctx, "symbol", "icrc1_symbol", nil, &symbol)
		return symbol, err
	})
}

// Metadata loads fee, decimals, name and symbol.
func (c *Client) Metadata(ctx context.Context) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	if m.Fee, err = c.Fee(ctx); err != nil {
		return m, err
	}
	if m.Decimals, err = c.Decimals(ctx); err != nil {
		return m, err
	}
	if m.Name, err = c.Name(ctx); err != nil {
		return m, err
	}
	if m.Symbol, err = c.Symbol(ctx); err != nil {
		return m, err
	}
	return m, nil
}

type transferArg struct {
	FromSubaccount *agent.Blob `json:"from_subaccount"`
	To             Account     `json:"to"`
	Amount         agent.Nat   `json:"amount"`
	Fee            *agent.Nat  `json:"fee"`
	Memo           *agent.Blob `json:"memo"`
	CreatedAtTime  *agent.Nat  `json:"created_at_time"`
}

// Transfer moves Amount to args.To and returns the block index. It is never retried:
// a ledger rejection is returned as *TransferError.
func (c *Client) Transfer(ctx context.Context, args TransferArgs) (blockIndex uint64, err error) {
	if args.Amount == 0 {
		return 0, ErrZeroAmount
	}
	if args.CreatedAt.IsZero() {
		return 0, ErrMissingCreatedAt
	}
	createdAt, err := safe.Uint64(args.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("created_at_time: %w", err)
	}

	arg := transferArg{
		FromSubaccount: subaccountBlob(args.FromSubaccount),
		To:             args.To,
		Amount:         agent.Nat(args.Amount),
		Fee:            agent.NatPtr(args.Fee),
		CreatedAtTime:  agent.NatPtr(&createdAt),
	}
	if len(args.Memo) > 0 {
		memo := agent.Blob(args.Memo)
		arg.Memo = &memo
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("transfer", err, started)
	}()

	var res agent.Result
	if err = c.caller.Update(ctx, c.canister, "icrc1_transfer", []any{arg}, &res); err != nil {
		return 0, fmt.Errorf("icrc1_transfer: %w", err)
	}
	var block agent.Nat
	rejected, err := res.Unwrap(&block)
	if err != nil {
		return 0, fmt.Errorf("icrc1_transfer: %w", err)
	}
	if rejected != nil {
		terr := decodeTransferError(rejected)
		c.logger.Info("transfer rejected", zap.String("kind", string(terr.Kind)), zap.Error(terr))
		return 0, terr
	}
	return uint64(block), nil
}

func (c *Client) query(ctx context.Context, operation, method string, args, reply any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe(operation, err, started)
	}()

	for attempt := 1; ; attempt++ {
		err = c.caller.Query(ctx, c.canister, method, args, reply)
		if err == nil {
			return nil
		}
		if !errors.Is(err, agent.ErrUnavailable) || attempt >= c.attempts {
			return fmt.Errorf("%s: %w", method, err)
		}

		c.metrics.ObserveRetry(operation)
		c.logger.Warn("ledger read failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if sleepErr := c.sleep(ctx, clock.Backoff(attempt, c.backoff, maxRetryBackoff)); sleepErr != nil {
			return fmt.Errorf("%s: %w", method, sleepErr)
		}
	}
}

// cached holds a value loaded at most once successfully.
type cached[T any] struct {
	mu    sync.Mutex
	value T
	ok    bool
}

func (c *cached[T]) get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ok {
		return c.value, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.value, c.ok = v, true
	return v, nil
}
