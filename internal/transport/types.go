package transport

import (
	"context"

	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/backend"
	"github.com/goodnatureofminers/icwallet/internal/balance"
	"github.com/goodnatureofminers/icwallet/internal/bridge"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/session"
	"github.com/goodnatureofminers/icwallet/internal/transfer"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Session interface {
		Current() (session.Token, error)
	}

	Balances interface {
		Snapshot() (balance.Snapshot, bool)
		Refresh(ctx context.Context) (balance.Snapshot, error)
	}

	Bridge interface {
		Enabled() bool
		DepositAddress(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (string, error)
		DepositStatus(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (bridge.DepositStatus, error)
		WithdrawalStatus(ctx context.Context, id uint64) (bridge.WithdrawalStatus, error)
		BridgeInfo(ctx context.Context) (bridge.Info, error)
	}

	Sender interface {
		NewSend() (*transfer.Send, error)
	}

	Backend interface {
		TransactionHistory(ctx context.Context) ([]backend.HistoryItem, error)
		Contacts(ctx context.Context) ([]backend.Contact, error)
		SaveContact(ctx context.Context, name, address string) error
		DeleteContact(ctx context.Context, id uint64) error
	}

	Withdrawals interface {
		Track(id uint64)
	}

	Archive interface {
		Records(ctx context.Context, owner string, limit int) ([]model.TransferRecord, error)
	}
)
