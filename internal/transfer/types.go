package transfer

import (
	"context"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/session"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Ledger interface {
		Transfer(ctx context.Context, asset model.Asset, args ledger.TransferArgs) (uint64, error)
	}

	Bridge interface {
		ValidateAddress(address string) error
		Withdraw(ctx context.Context, address string, amount uint64) (uint64, error)
	}

	Recorder interface {
		Record(ctx context.Context, rec model.TransferRecord) error
	}

	Session interface {
		Current() (session.Token, error)
		IsCurrent(t session.Token) bool
	}

	Metrics interface {
		Observe(asset model.Asset, mode model.Mode, err error, started time.Time)
		ObserveHistoryWarning(asset model.Asset)
	}
)
