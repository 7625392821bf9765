package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks transport failures: the gateway or the canister could not be reached.
	ErrUnavailable = errors.New("service unavailable")
	// ErrOutcomeUnknown is returned when the caller stopped waiting for an
	// update that had already been handed to the gateway. The update may
	// still have executed.
	ErrOutcomeUnknown = errors.New("call outcome unknown")
)

// RejectError is returned when the gateway reached the canister and the call was rejected.
type RejectError struct {
	Canister string
	Method   string
	Code     int
	Message  string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s on %s rejected (%d): %s", e.Method, e.Canister, e.Code, e.Message)
}
