package agent

import (
	"context"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/identity"
)

// ObservedCaller records metrics around every call of the wrapped Caller.
type ObservedCaller struct {
	caller  Caller
	metrics CallMetrics
}

func NewObservedCaller(caller Caller, metrics CallMetrics) *ObservedCaller {
	return &ObservedCaller{
		caller:  caller,
		metrics: metrics,
	}
}

func (o *ObservedCaller) Query(ctx context.Context, canister identity.Principal, method string, args, reply any) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe(canister.String(), method, kindQuery, err, started)
	}()
	return o.caller.Query(ctx, canister, method, args, reply)
}

func (o *ObservedCaller) Update(ctx context.Context, canister identity.Principal, method string, args, reply any) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe(canister.String(), method, kindUpdate, err, started)
	}()
	return o.caller.Update(ctx, canister, method, args, reply)
}
