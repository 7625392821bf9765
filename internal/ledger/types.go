package ledger

import (
	"context"
	"time"

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
		ObserveRetry(operation string)
	}
)
