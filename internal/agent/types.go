package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/identity"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Caller sends candid-shaped calls to canisters on behalf of the signed-in identity.
	Caller interface {
		Query(ctx context.Context, canister identity.Principal, method string, args, reply any) error
		Update(ctx context.Context, canister identity.Principal, method string, args, reply any) error
	}

	// RawRequester is satisfied by *rpcclient.Client.
	RawRequester interface {
		RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
	}

	CallMetrics interface {
		Observe(canister, method, kind string, err error, started time.Time)
	}
)
