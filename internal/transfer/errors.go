package transfer

import (
	"errors"
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/model"
)

var (
	// ErrNativeNotSupported is returned for native sends whose bridge is not built yet.
	ErrNativeNotSupported = errors.New("native transfers are not supported yet")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrIdentityChanged    = errors.New("identity changed since the send was started")
)

// OperationError names the asset and operation of a failed send.
type OperationError struct {
	Asset model.Asset
	Op    string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Asset, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
