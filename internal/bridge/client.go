// Package bridge is a client for the bitcoin bridge that mints wrapped BTC on
// confirmed deposits and burns it to send native BTC back out.
package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultInfoTTL       = 5 * time.Minute
	DefaultCheckInterval = 10 * time.Second

	flightTimeout = 2 * time.Minute
)

// Config describes the bridge endpoint. When Enabled is false the bridge is
// not deployed: status reads return neutral values and every other call
// returns ErrBridgeUnavailable.
type Config struct {
	Canister identity.Principal
	Network  model.Network
	Enabled  bool
	// Self is the principal the gateway signs as.
	Self          identity.Principal
	InfoTTL       time.Duration
	CheckInterval time.Duration
}

// Info is the bridge's withdrawal parameters.
type Info struct {
	MinWithdrawalAmount uint64
	MinConfirmations    uint32
	Fee                 uint64
}

// Client talks to the bitcoin bridge on behalf of one identity.
type Client struct {
	caller   Caller
	canister identity.Principal
	network  model.Network
	params   *chaincfg.Params
	enabled  bool
	self     identity.Principal
	store    AddressStore
	limiter  ratelimit.Limiter
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time

	infoTTL time.Duration
	infoMu  sync.Mutex
	info    Info
	infoAt  time.Time

	calls       singleflight.Group
	withdrawing atomic.Bool
}

// NewClient constructs a Client for cfg.
func NewClient(caller Caller, cfg Config, store AddressStore, metrics Metrics, logger *zap.Logger) (*Client, error) {
	params, err := chainParamsForNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	ttl := cfg.InfoTTL
	if ttl <= 0 {
		ttl = DefaultInfoTTL
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Client{
		caller:   caller,
		canister: cfg.Canister,
		network:  cfg.Network,
		params:   params,
		enabled:  cfg.Enabled,
		self:     cfg.Self,
		store:    store,
		limiter:  ratelimit.New(1, ratelimit.Per(interval), ratelimit.WithoutSlack),
		metrics:  metrics,
		logger:   logger.Named("bridge").With(zap.String("network", string(cfg.Network))),
		now:      time.Now,
		infoTTL:  ttl,
	}, nil
}

// Enabled reports whether the bridge is deployed.
func (c *Client) Enabled() bool {
	return c.enabled
}

type accountArg struct {
	Owner      *identity.Principal `json:"owner"`
	Subaccount *agent.Blob         `json:"subaccount"`
}

func newAccountArg(owner *identity.Principal, subaccount *accountid.Subaccount) accountArg {
	arg := accountArg{Owner: owner}
	if subaccount != nil {
		b := agent.Blob(subaccount[:])
		arg.Subaccount = &b
	}
	return arg
}

func (c *Client) subjectKey(owner *identity.Principal, subaccount *accountid.Subaccount) string {
	o := c.self
	if owner != nil {
		o = *owner
	}
	sub := "default"
	if subaccount != nil {
		sub = hex.EncodeToString(subaccount[:])
	}
	return strings.Join([]string{string(c.network), c.self.String(), o.String(), sub}, ":")
}

// DepositAddress returns the native address that credits (owner, subaccount).
// A nil owner means the calling identity. Addresses never change, so they are
// kept in the store after the first issue.
func (c *Client) DepositAddress(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (address string, err error) {
	if !c.enabled {
		return "", ErrBridgeUnavailable
	}

	key := "btc-address:" + c.subjectKey(owner, subaccount)
	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("deposit address cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("deposit_address", err, started)
	}()

	if err = c.caller.Query(ctx, c.canister, "get_btc_address", []any{newAccountArg(owner, subaccount)}, &address); err != nil {
		return "", fmt.Errorf("get_btc_address: %w", err)
	}
	if !c.isOwnNetwork(address) {
		err = fmt.Errorf("get_btc_address: %w: %q is not a %s address", agent.ErrMalformedReply, address, c.network)
		return "", err
	}

	if err := c.store.Set(ctx, key, address); err != nil {
		c.logger.Warn("deposit address cache write failed", zap.Error(err))
	}
	return address, nil
}

// CheckDeposits asks the bridge to rescan the deposit address of (owner,
// subaccount) and mint confirmed outputs. Calls are spaced by the configured
// check interval and concurrent calls for the same subject share one request.
// Without a bridge it reports no deposits.
func (c *Client) CheckDeposits(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) ([]UtxoResult, error) {
	if !c.enabled {
		return nil, nil
	}

	return shared(ctx, &c.calls, "update_balance:"+c.subjectKey(owner, subaccount), func(ctx context.Context) ([]UtxoResult, error) {
		return c.checkDeposits(ctx, owner, subaccount)
	})
}

func (c *Client) checkDeposits(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (results []UtxoResult, err error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("check_deposits", err, started)
	}()

	var reply []agent.Result
	if err = c.caller.Update(ctx, c.canister, "update_balance", []any{newAccountArg(owner, subaccount)}, &reply); err != nil {
		return nil, fmt.Errorf("update_balance: %w", err)
	}

	results = make([]UtxoResult, 0, len(reply))
	for _, r := range reply {
		var ok json.RawMessage
		rejected, err := r.Unwrap(&ok)
		if err != nil {
			return nil, fmt.Errorf("update_balance: %w", err)
		}
		if rejected != nil {
			results = append(results, UtxoResult{Err: decodeUpdateBalanceError(rejected)})
			continue
		}
		status, err := decodeUtxoStatus(ok)
		if err != nil {
			c.logger.Warn("unrecognized utxo status", zap.ByteString("payload", ok), zap.Error(err))
			results = append(results, UtxoResult{Err: &UpdateBalanceError{Kind: GenericError, Message: unknownError(ok)}})
			continue
		}
		results = append(results, UtxoResult{Status: status})
	}
	return results, nil
}

// DepositStatus runs CheckDeposits and summarizes the outcome.
func (c *Client) DepositStatus(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (DepositStatus, error) {
	results, err := c.CheckDeposits(ctx, owner, subaccount)
	if err != nil {
		return DepositStatus{}, err
	}
	status := Summarize(results)
	if c.enabled {
		c.metrics.SetPendingDeposits(status.Pending())
	}
	return status, nil
}

// ValidateAddress checks address against the configured network's grammar.
func (c *Client) ValidateAddress(address string) error {
	if !c.isOwnNetwork(address) {
		return &RetrieveBtcError{Kind: MalformedAddress, Address: address}
	}
	return nil
}

func (c *Client) isOwnNetwork(address string) bool {
	decoded, err := btcutil.DecodeAddress(address, c.params)
	return err == nil && decoded.IsForNet(c.params)
}

type retrieveBtcArg struct {
	Address string    `json:"address"`
	Amount  agent.Nat `json:"amount"`
}

// Withdraw burns amount satoshis of wrapped BTC and sends them to address,
// returning the withdrawal id. The address and the bridge minimum are checked
// before anything is submitted, and only one withdrawal may be in flight. It
// is never retried.
func (c *Client) Withdraw(ctx context.Context, address string, amount uint64) (id uint64, err error) {
	if !c.enabled {
		return 0, ErrBridgeUnavailable
	}
	if err := c.ValidateAddress(address); err != nil {
		return 0, err
	}
	info, err := c.BridgeInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("load bridge info: %w", err)
	}
	if amount == 0 || amount < info.MinWithdrawalAmount {
		return 0, &RetrieveBtcError{Kind: AmountTooLow, MinAmount: info.MinWithdrawalAmount}
	}

	if !c.withdrawing.CompareAndSwap(false, true) {
		return 0, &RetrieveBtcError{Kind: AlreadyProcessing}
	}
	defer c.withdrawing.Store(false)

	started := time.Now()
	defer func() {
		c.metrics.Observe("withdraw", err, started)
	}()

	var res agent.Result
	arg := retrieveBtcArg{Address: address, Amount: agent.Nat(amount)}
	if err = c.caller.Update(ctx, c.canister, "retrieve_btc", []any{arg}, &res); err != nil {
		return 0, fmt.Errorf("retrieve_btc: %w", err)
	}
	var block agent.Nat
	rejected, err := res.Unwrap(&block)
	if err != nil {
		return 0, fmt.Errorf("retrieve_btc: %w", err)
	}
	if rejected != nil {
		rerr := decodeRetrieveBtcError(rejected)
		c.logger.Info("withdrawal rejected", zap.String("kind", string(rerr.Kind)), zap.Error(rerr))
		return 0, rerr
	}

	c.logger.Info("withdrawal submitted",
		zap.Uint64("id", uint64(block)),
		zap.String("amount", btcutil.Amount(amount).String()))
	return uint64(block), nil
}

type retrieveBtcStatusArg struct {
	BlockIndex agent.Nat `json:"block_index"`
}

// WithdrawalStatus reads the state of withdrawal id. Without a bridge it
// reports WithdrawalUnknown.
func (c *Client) WithdrawalStatus(ctx context.Context, id uint64) (WithdrawalStatus, error) {
	if !c.enabled {
		return WithdrawalStatus{State: WithdrawalUnknown}, nil
	}

	return shared(ctx, &c.calls, "retrieve_btc_status:"+strconv.FormatUint(id, 10), func(ctx context.Context) (WithdrawalStatus, error) {
		return c.withdrawalStatus(ctx, id)
	})
}

// wait blocks for the next check slot or until ctx ends.
func (c *Client) wait(ctx context.Context) error {
	slot := make(chan struct{})
	go func() {
		c.limiter.Take()
		close(slot)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-slot:
		return nil
	}
}

// shared runs fn once for all concurrent callers of key. The flight runs
// detached from any one caller and is bounded by flightTimeout; each caller
// stops waiting when its own ctx ends.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	ch := g.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return fn(flightCtx)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Client) withdrawalStatus(ctx context.Context, id uint64) (status WithdrawalStatus, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("withdrawal_status", err, started)
	}()

	var reply agent.Variant
	if err = c.caller.Query(ctx, c.canister, "retrieve_btc_status", []any{retrieveBtcStatusArg{BlockIndex: agent.Nat(id)}}, &reply); err != nil {
		return WithdrawalStatus{}, fmt.Errorf("retrieve_btc_status: %w", err)
	}
	if status, err = decodeWithdrawalStatus(reply); err != nil {
		return WithdrawalStatus{}, fmt.Errorf("retrieve_btc_status: %w", err)
	}
	return status, nil
}

type wireInfo struct {
	RetrieveBtcMinAmount agent.Nat `json:"retrieve_btc_min_amount"`
	MinConfirmations     agent.Nat `json:"min_confirmations"`
	KytFee               agent.Nat `json:"kyt_fee"`
}

// BridgeInfo returns the withdrawal parameters, cached for the info TTL.
func (c *Client) BridgeInfo(ctx context.Context) (info Info, err error) {
	if !c.enabled {
		return Info{}, ErrBridgeUnavailable
	}

	c.infoMu.Lock()
	defer c.infoMu.Unlock()

	if !c.infoAt.IsZero() && c.now().Sub(c.infoAt) < c.infoTTL {
		return c.info, nil
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("bridge_info", err, started)
	}()

	var w wireInfo
	if err = c.caller.Query(ctx, c.canister, "get_minter_info", nil, &w); err != nil {
		return Info{}, fmt.Errorf("get_minter_info: %w", err)
	}
	confirmations, err := narrow32(w.MinConfirmations)
	if err != nil {
		return Info{}, fmt.Errorf("get_minter_info: %w", err)
	}

	c.info = Info{
		MinWithdrawalAmount: uint64(w.RetrieveBtcMinAmount),
		MinConfirmations:    confirmations,
		Fee:                 uint64(w.KytFee),
	}
	c.infoAt = c.now()
	return c.info, nil
}

func chainParamsForNetwork(network model.Network) (*chaincfg.Params, error) {
	switch strings.ToLower(string(network)) {
	case "main", "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
