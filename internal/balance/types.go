package balance

import (
	"context"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/internal/rates"
	"github.com/goodnatureofminers/icwallet/internal/session"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Source interface {
		Assets() []model.Asset
		BalanceOf(ctx context.Context, asset model.Asset, account ledger.Account) (uint64, error)
	}

	RateSource interface {
		Get(ctx context.Context) (rates.Table, error)
	}

	Session interface {
		Current() (session.Token, error)
		IsCurrent(t session.Token) bool
	}

	Metrics interface {
		ObserveAsset(asset model.Asset, err error)
		ObserveFetch(partial bool, started time.Time)
		ObserveStaleDiscard()
	}
)
