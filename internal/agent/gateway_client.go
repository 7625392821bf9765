// Package agent talks to canisters through the agent gateway, a JSON-RPC endpoint that
// holds the identity, signs requests and relays query and update calls.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"go.uber.org/zap"
)

const (
	kindQuery  = "query"
	kindUpdate = "update"
)

// GatewayClient implements Caller over the gateway's "query" and "update" JSON-RPC methods.
// Both take [canister, method, args] and answer with the decoded reply value.
type GatewayClient struct {
	rpc    RawRequester
	logger *zap.Logger
}

// NewGatewayClient wraps an rpc connection to the gateway.
func NewGatewayClient(rpc RawRequester, logger *zap.Logger) *GatewayClient {
	return &GatewayClient{
		rpc:    rpc,
		logger: logger.Named("agent"),
	}
}

// Query performs a read-only call.
func (c *GatewayClient) Query(ctx context.Context, canister identity.Principal, method string, args, reply any) error {
	return c.call(ctx, kindQuery, canister, method, args, reply)
}

// Update performs a state-changing call. If ctx ends after the request was
// sent, the call may still execute and the error wraps ErrOutcomeUnknown.
func (c *GatewayClient) Update(ctx context.Context, canister identity.Principal, method string, args, reply any) error {
	return c.call(ctx, kindUpdate, canister, method, args, reply)
}

type rawResult struct {
	payload json.RawMessage
	err     error
}

func (c *GatewayClient) call(ctx context.Context, kind string, canister identity.Principal, method string, args, reply any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params, err := encodeParams(canister, method, args)
	if err != nil {
		return fmt.Errorf("encode %s args: %w", method, err)
	}

	done := make(chan rawResult, 1)
	go func() {
		payload, err := c.rpc.RawRequest(kind, params)
		done <- rawResult{payload: payload, err: err}
	}()

	var res rawResult
	select {
	case <-ctx.Done():
		if kind == kindUpdate {
			c.logger.Warn("stopped waiting for dispatched update",
				zap.String("canister", canister.String()),
				zap.String("method", method),
				zap.Error(ctx.Err()))
			return fmt.Errorf("%w: %s %s: %v", ErrOutcomeUnknown, kind, method, ctx.Err())
		}
		return ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(res.err, &rpcErr) {
			return &RejectError{
				Canister: canister.String(),
				Method:   method,
				Code:     int(rpcErr.Code),
				Message:  rpcErr.Message,
			}
		}
		c.logger.Debug("gateway call failed",
			zap.String("kind", kind),
			zap.String("canister", canister.String()),
			zap.String("method", method),
			zap.Error(res.err))
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, kind, method, res.err)
	}

	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(res.payload, reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", method, err)
	}
	return nil
}

func encodeParams(canister identity.Principal, method string, args any) ([]json.RawMessage, error) {
	target, err := json.Marshal(canister.String())
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(method)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return []json.RawMessage{target, name, payload}, nil
}
