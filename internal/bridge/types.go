package bridge

import (
	"context"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/identity"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Caller interface {
		Query(ctx context.Context, canister identity.Principal, method string, args, reply any) error
		Update(ctx context.Context, canister identity.Principal, method string, args, reply any) error
	}

	Metrics interface {
		Observe(operation string, err error, started time.Time)
		SetPendingDeposits(n int)
		ObserveWithdrawalState(state string)
	}

	// AddressStore keeps issued deposit addresses; ok is false on a miss.
	AddressStore interface {
		Get(ctx context.Context, key string) (address string, ok bool, err error)
		Set(ctx context.Context, key, address string) error
	}

	StatusSource interface {
		WithdrawalStatus(ctx context.Context, id uint64) (WithdrawalStatus, error)
	}

	DepositChecker interface {
		DepositStatus(ctx context.Context, owner *identity.Principal, subaccount *accountid.Subaccount) (DepositStatus, error)
	}
)
