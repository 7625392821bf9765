package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/agent"
)

var (
	ErrZeroAmount       = errors.New("amount must be greater than zero")
	ErrMissingCreatedAt = errors.New("transfer requires a creation time")
)

type TransferErrorKind string

const (
	BadFee                 TransferErrorKind = "BadFee"
	BadBurn                TransferErrorKind = "BadBurn"
	InsufficientFunds      TransferErrorKind = "InsufficientFunds"
	TooOld                 TransferErrorKind = "TooOld"
	CreatedInFuture        TransferErrorKind = "CreatedInFuture"
	Duplicate              TransferErrorKind = "Duplicate"
	TemporarilyUnavailable TransferErrorKind = "TemporarilyUnavailable"
	GenericError           TransferErrorKind = "GenericError"
)

// TransferError is a ledger's structured rejection of a transfer. Only the
// fields relevant to Kind are set.
type TransferError struct {
	Kind          TransferErrorKind
	ExpectedFee   uint64
	MinBurnAmount uint64
	Balance       uint64
	LedgerTime    uint64
	DuplicateOf   uint64
	Code          uint64
	Message       string
}

func (e *TransferError) Error() string {
	switch e.Kind {
	case BadFee:
		return fmt.Sprintf("Incorrect fee. Expected: %d", e.ExpectedFee)
	case BadBurn:
		return fmt.Sprintf("Burn amount too small. Minimum: %d", e.MinBurnAmount)
	case InsufficientFunds:
		return fmt.Sprintf("Insufficient funds. Balance: %d", e.Balance)
	case TooOld:
		return "Transaction is too old"
	case CreatedInFuture:
		return "Transaction timestamp is in the future"
	case Duplicate:
		return fmt.Sprintf("Duplicate transaction. Original block: %d", e.DuplicateOf)
	case TemporarilyUnavailable:
		return "Ledger temporarily unavailable. Please try again"
	default:
		return fmt.Sprintf("Error %d: %s", e.Code, e.Message)
	}
}

// Retryable reports whether resubmitting the same request may succeed later.
func (e *TransferError) Retryable() bool {
	return e.Kind == TemporarilyUnavailable
}

type wireTransferError struct {
	ExpectedFee   *agent.Nat `json:"expected_fee"`
	MinBurnAmount *agent.Nat `json:"min_burn_amount"`
	Balance       *agent.Nat `json:"balance"`
	LedgerTime    *agent.Nat `json:"ledger_time"`
	DuplicateOf   *agent.Nat `json:"duplicate_of"`
	ErrorCode     *agent.Nat `json:"error_code"`
	Message       string     `json:"message"`
}

// decodeTransferError never fails: unknown shapes become a GenericError carrying the raw payload.
func decodeTransferError(raw json.RawMessage) *TransferError {
	unknown := &TransferError{Kind: GenericError, Message: "unrecognized ledger error: " + string(raw)}

	var v agent.Variant
	if err := json.Unmarshal(raw, &v); err != nil {
		return unknown
	}

	var w wireTransferError
	switch TransferErrorKind(v.Tag) {
	case TooOld, TemporarilyUnavailable:
		return &TransferError{Kind: TransferErrorKind(v.Tag)}
	case BadFee, BadBurn, InsufficientFunds, CreatedInFuture, Duplicate, GenericError:
		if err := v.Decode(&w); err != nil {
			return unknown
		}
	default:
		return unknown
	}

	e := &TransferError{Kind: TransferErrorKind(v.Tag), Message: w.Message}
	pick := func(n *agent.Nat) (uint64, bool) {
		if n == nil {
			return 0, false
		}
		return uint64(*n), true
	}
	var ok bool
	switch e.Kind {
	case BadFee:
		e.ExpectedFee, ok = pick(w.ExpectedFee)
	case BadBurn:
		e.MinBurnAmount, ok = pick(w.MinBurnAmount)
	case InsufficientFunds:
		e.Balance, ok = pick(w.Balance)
	case CreatedInFuture:
		e.LedgerTime, ok = pick(w.LedgerTime)
	case Duplicate:
		e.DuplicateOf, ok = pick(w.DuplicateOf)
	case GenericError:
		e.Code, ok = pick(w.ErrorCode)
	}
	if !ok {
		return unknown
	}
	return e
}
