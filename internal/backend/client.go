// Package backend is a client for the application backend canister that keeps
// per-user transaction history, contacts and profiles, and relays market rates.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"go.uber.org/zap"
)

var ErrEmptyField = errors.New("field must not be empty")

type Contact struct {
	ID      uint64
	Owner   identity.Principal
	Name    string
	Address string
}

type Profile struct {
	Name string `json:"name"`
}

// HistoryItem is one transaction as stored by the backend.
type HistoryItem struct {
	ID          uint64
	Recipient   string
	AmountE8s   uint64
	Sender      identity.Principal
	BlockHeight *uint64
	Timestamp   time.Time
	Asset       model.Asset
}

type Client struct {
	caller   Caller
	canister identity.Principal
	logger   *zap.Logger
}

func NewClient(caller Caller, canister identity.Principal, logger *zap.Logger) *Client {
	return &Client{
		caller:   caller,
		canister: canister,
		logger:   logger.Named("backend"),
	}
}

// Record stores a completed transfer in the caller's history.
func (c *Client) Record(ctx context.Context, rec model.TransferRecord) error {
	coin, err := coinTypeOf(rec.Asset)
	if err != nil {
		return err
	}
	args := []any{rec.Recipient, agent.Nat(rec.AmountE8s), coin, agent.NatPtr(rec.BlockHeight)}
	if err := c.caller.Update(ctx, c.canister, "recordTransaction", args, nil); err != nil {
		return fmt.Errorf("recordTransaction: %w", err)
	}
	return nil
}

type wireHistoryItem struct {
	ID          agent.Nat          `json:"id"`
	Recipient   string             `json:"recipient"`
	AmountE8    agent.Nat          `json:"amountE8"`
	Sender      identity.Principal `json:"sender"`
	BlockHeight *agent.Nat         `json:"blockHeight"`
	Timestamp   agent.Nat          `json:"timestamp"`
	CoinType    agent.Variant      `json:"coinType"`
}

// TransactionHistory returns the caller's recorded transfers.
func (c *Client) TransactionHistory(ctx context.Context) ([]HistoryItem, error) {
	var reply []wireHistoryItem
	if err := c.caller.Query(ctx, c.canister, "getTransactionHistory", nil, &reply); err != nil {
		return nil, fmt.Errorf("getTransactionHistory: %w", err)
	}

	items := make([]HistoryItem, 0, len(reply))
	for _, w := range reply {
		asset, err := assetOf(w.CoinType)
		if err != nil {
			return nil, fmt.Errorf("getTransactionHistory: %w", err)
		}
		item := HistoryItem{
			ID:        uint64(w.ID),
			Recipient: w.Recipient,
			AmountE8s: uint64(w.AmountE8),
			Sender:    w.Sender,
			Timestamp: time.Unix(0, int64(w.Timestamp)).UTC(),
			Asset:     asset,
		}
		if w.BlockHeight != nil {
			h := uint64(*w.BlockHeight)
			item.BlockHeight = &h
		}
		items = append(items, item)
	}
	return items, nil
}

type wireContact struct {
	ID      agent.Nat          `json:"id"`
	Owner   identity.Principal `json:"owner"`
	Name    string             `json:"name"`
	Address string             `json:"address"`
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var reply []wireContact
	if err := c.caller.Query(ctx, c.canister, "getContacts", nil, &reply); err != nil {
		return nil, fmt.Errorf("getContacts: %w", err)
	}
	contacts := make([]Contact, 0, len(reply))
	for _, w := range reply {
		contacts = append(contacts, Contact{ID: uint64(w.ID), Owner: w.Owner, Name: w.Name, Address: w.Address})
	}
	return contacts, nil
}

func (c *Client) SaveContact(ctx context.Context, name, address string) error {
	name, address, err := contactFields(name, address)
	if err != nil {
		return err
	}
	if err := c.caller.Update(ctx, c.canister, "saveContact", []any{name, address}, nil); err != nil {
		return fmt.Errorf("saveContact: %w", err)
	}
	return nil
}

func (c *Client) UpdateContact(ctx context.Context, id uint64, name, address string) error {
	name, address, err := contactFields(name, address)
	if err != nil {
		return err
	}
	if err := c.caller.Update(ctx, c.canister, "updateContact", []any{agent.Nat(id), name, address}, nil); err != nil {
		return fmt.Errorf("updateContact: %w", err)
	}
	return nil
}

func (c *Client) DeleteContact(ctx context.Context, id uint64) error {
	if err := c.caller.Update(ctx, c.canister, "deleteContact", []any{agent.Nat(id)}, nil); err != nil {
		return fmt.Errorf("deleteContact: %w", err)
	}
	return nil
}

// CallerProfile returns nil when the caller has not saved a profile yet.
func (c *Client) CallerProfile(ctx context.Context) (*Profile, error) {
	var reply *Profile
	if err := c.caller.Query(ctx, c.canister, "getCallerUserProfile", nil, &reply); err != nil {
		return nil, fmt.Errorf("getCallerUserProfile: %w", err)
	}
	return reply, nil
}

func (c *Client) SaveCallerProfile(ctx context.Context, p Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("profile name: %w", ErrEmptyField)
	}
	if err := c.caller.Update(ctx, c.canister, "saveCallerUserProfile", []any{p}, nil); err != nil {
		return fmt.Errorf("saveCallerUserProfile: %w", err)
	}
	return nil
}

// CurrentRates returns the raw market tick document. The backend fetches it with an
// HTTP outcall, so this is an update call.
func (c *Client) CurrentRates(ctx context.Context) (string, error) {
	var doc string
	if err := c.caller.Update(ctx, c.canister, "getCurrentRates", nil, &doc); err != nil {
		return "", fmt.Errorf("getCurrentRates: %w", err)
	}
	return doc, nil
}

func contactFields(name, address string) (string, string, error) {
	name, address = strings.TrimSpace(name), strings.TrimSpace(address)
	if name == "" {
		return "", "", fmt.Errorf("contact name: %w", ErrEmptyField)
	}
	if address == "" {
		return "", "", fmt.Errorf("contact address: %w", ErrEmptyField)
	}
	return name, address, nil
}
