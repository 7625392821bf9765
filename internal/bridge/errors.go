package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/icwallet/internal/agent"
)

// ErrBridgeUnavailable is returned by operations that need the bridge when it
// is not deployed for the configured environment.
var ErrBridgeUnavailable = errors.New("bitcoin bridge is not available in this environment")

type ErrorKind string

const (
	MalformedAddress       ErrorKind = "MalformedAddress"
	AlreadyProcessing      ErrorKind = "AlreadyProcessing"
	AmountTooLow           ErrorKind = "AmountTooLow"
	InsufficientFunds      ErrorKind = "InsufficientFunds"
	TemporarilyUnavailable ErrorKind = "TemporarilyUnavailable"
	GenericError           ErrorKind = "GenericError"
	NoNewUtxos             ErrorKind = "NoNewUtxos"
)

// RetrieveBtcError is the bridge's rejection of a withdrawal, or the same
// condition detected locally before submission.
type RetrieveBtcError struct {
	Kind      ErrorKind
	Address   string
	MinAmount uint64
	Balance   uint64
	Code      uint64
	Message   string
}

func (e *RetrieveBtcError) Error() string {
	switch e.Kind {
	case MalformedAddress:
		return fmt.Sprintf("Invalid Bitcoin address: %s", e.Address)
	case AlreadyProcessing:
		return "A withdrawal is already being processed. Please wait."
	case AmountTooLow:
		return fmt.Sprintf("Amount too low. Minimum: %d satoshis (%s)", e.MinAmount, btcutil.Amount(e.MinAmount))
	case InsufficientFunds:
		return fmt.Sprintf("Insufficient funds. Balance: %d satoshis", e.Balance)
	case TemporarilyUnavailable:
		return fmt.Sprintf("Service temporarily unavailable: %s", e.Message)
	default:
		return fmt.Sprintf("Error: %s", e.Message)
	}
}

// UpdateBalanceError is the bridge's rejection of a deposit check.
type UpdateBalanceError struct {
	Kind                  ErrorKind
	Code                  uint64
	Message               string
	RequiredConfirmations uint32
	CurrentConfirmations  *uint32
}

func (e *UpdateBalanceError) Error() string {
	switch e.Kind {
	case AlreadyProcessing:
		return "A deposit check is already being processed. Please wait."
	case NoNewUtxos:
		if e.CurrentConfirmations != nil {
			return fmt.Sprintf("No new deposits. Confirmations: %d of %d", *e.CurrentConfirmations, e.RequiredConfirmations)
		}
		return fmt.Sprintf("No new deposits. Required confirmations: %d", e.RequiredConfirmations)
	case TemporarilyUnavailable:
		return fmt.Sprintf("Service temporarily unavailable: %s", e.Message)
	default:
		return fmt.Sprintf("Error: %s", e.Message)
	}
}

type wireGenericError struct {
	ErrorMessage string    `json:"error_message"`
	ErrorCode    agent.Nat `json:"error_code"`
}

type wireNoNewUtxos struct {
	RequiredConfirmations agent.Nat  `json:"required_confirmations"`
	CurrentConfirmations  *agent.Nat `json:"current_confirmations"`
}

func unknownError(raw json.RawMessage) string {
	return "unrecognized bridge error: " + string(raw)
}

func decodeRetrieveBtcError(raw json.RawMessage) *RetrieveBtcError {
	unknown := &RetrieveBtcError{Kind: GenericError, Message: unknownError(raw)}

	var v agent.Variant
	if err := json.Unmarshal(raw, &v); err != nil {
		return unknown
	}

	e := &RetrieveBtcError{Kind: ErrorKind(v.Tag)}
	switch e.Kind {
	case AlreadyProcessing:
	case MalformedAddress:
		if v.Decode(&e.Address) != nil {
			return unknown
		}
	case TemporarilyUnavailable:
		if v.Decode(&e.Message) != nil {
			return unknown
		}
	case AmountTooLow:
		var minAmount agent.Nat
		if v.Decode(&minAmount) != nil {
			return unknown
		}
		e.MinAmount = uint64(minAmount)
	case InsufficientFunds:
		var w struct {
			Balance agent.Nat `json:"balance"`
		}
		if v.Decode(&w) != nil {
			return unknown
		}
		e.Balance = uint64(w.Balance)
	case GenericError:
		var w wireGenericError
		if v.Decode(&w) != nil {
			return unknown
		}
		e.Code, e.Message = uint64(w.ErrorCode), w.ErrorMessage
	default:
		return unknown
	}
	return e
}

func decodeUpdateBalanceError(raw json.RawMessage) *UpdateBalanceError {
	unknown := &UpdateBalanceError{Kind: GenericError, Message: unknownError(raw)}

	var v agent.Variant
	if err := json.Unmarshal(raw, &v); err != nil {
		return unknown
	}

	e := &UpdateBalanceError{Kind: ErrorKind(v.Tag)}
	switch e.Kind {
	case AlreadyProcessing:
	case TemporarilyUnavailable:
		if v.Decode(&e.Message) != nil {
			return unknown
		}
	case GenericError:
		var w wireGenericError
		if v.Decode(&w) != nil {
			return unknown
		}
		e.Code, e.Message = uint64(w.ErrorCode), w.ErrorMessage
	case NoNewUtxos:
		var w wireNoNewUtxos
		if v.Decode(&w) != nil {
			return unknown
		}
		required, err := narrow32(w.RequiredConfirmations)
		if err != nil {
			return unknown
		}
		e.RequiredConfirmations = required
		if w.CurrentConfirmations != nil {
			current, err := narrow32(*w.CurrentConfirmations)
			if err != nil {
				return unknown
			}
			e.CurrentConfirmations = &current
		}
	default:
		return unknown
	}
	return e
}
