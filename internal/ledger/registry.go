package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/pkg/workerpool"
)

var ErrUnknownAsset = errors.New("no ledger configured for asset")

// Registry maps each asset to its ledger client.
type Registry struct {
	clients map[model.Asset]*Client
	order   []model.Asset
}

// NewRegistry indexes clients by asset, keeping the given order.
func NewRegistry(clients ...*Client) (*Registry, error) {
	r := &Registry{clients: make(map[model.Asset]*Client, len(clients))}
	for _, c := range clients {
		if _, dup := r.clients[c.Asset()]; dup {
			return nil, fmt.Errorf("duplicate ledger for %s", c.Asset())
		}
		r.clients[c.Asset()] = c
		r.order = append(r.order, c.Asset())
	}
	return r, nil
}

// Client returns the client for asset.
func (r *Registry) Client(asset model.Asset) (*Client, error) {
	c, ok := r.clients[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return c, nil
}

// Assets lists configured assets in registration order.
func (r *Registry) Assets() []model.Asset {
	return append([]model.Asset(nil), r.order...)
}

func (r *Registry) BalanceOf(ctx context.Context, asset model.Asset, account Account) (uint64, error) {
	c, err := r.Client(asset)
	if err != nil {
		return 0, err
	}
	return c.BalanceOf(ctx, account)
}

func (r *Registry) Transfer(ctx context.Context, asset model.Asset, args TransferArgs) (uint64, error) {
	c, err := r.Client(asset)
	if err != nil {
		return 0, err
	}
	return c.Transfer(ctx, args)
}

func (r *Registry) Fee(ctx context.Context, asset model.Asset) (uint64, error) {
	c, err := r.Client(asset)
	if err != nil {
		return 0, err
	}
	return c.Fee(ctx)
}

// Warm loads metadata of every ledger concurrently and fails on the first ledger that cannot answer.
func (r *Registry) Warm(ctx context.Context, workers int) error {
	err := workerpool.Process(ctx, workers, r.Assets(), func(ctx context.Context, asset model.Asset) error {
		_, err := r.clients[asset].Metadata(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("warm ledgers: %w", err)
	}
	return nil
}
