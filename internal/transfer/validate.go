package transfer

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/goodnatureofminers/icwallet/pkg/safe"
	"github.com/shopspring/decimal"
)

const (
	solanaKeySize = 32
	maxFraction   = 8
)

// ValidationError is an input problem found before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ParseAmount converts a decimal amount of whole tokens into e8s. It accepts
// at most eight fractional digits and rejects zero and negative values.
func ParseAmount(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, invalid("amount", "amount is required")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, invalid("amount", "%q is not a number", text)
	}
	if d.Sign() <= 0 {
		return 0, invalid("amount", "amount must be greater than zero")
	}
	e8s := d.Shift(maxFraction)
	if !e8s.IsInteger() {
		return 0, invalid("amount", "at most %d decimal places are allowed", maxFraction)
	}
	v, err := safe.Uint64FromBig(e8s.BigInt())
	if err != nil {
		return 0, invalid("amount", "amount is too large")
	}
	return v, nil
}

// FormatAmount renders e8s as a decimal amount of whole tokens.
func FormatAmount(e8s uint64) string {
	return decimal.NewFromUint64(e8s).Shift(-maxFraction).String()
}

// AddressValidator checks a native Bitcoin address for the configured network.
type AddressValidator interface {
	ValidateAddress(address string) error
}

// validateRecipient checks recipient against the grammar of asset in mode.
func validateRecipient(asset model.Asset, mode model.Mode, recipient string, btc AddressValidator) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return invalid("recipient", "recipient is required")
	}

	if mode == model.Wrapped {
		if _, err := identity.ParsePrincipal(recipient); err != nil {
			return invalid("recipient", "%q is not a principal", recipient)
		}
		return nil
	}

	switch asset {
	case model.CkBTC:
		if btc == nil || btc.ValidateAddress(recipient) != nil {
			return invalid("recipient", "%q is not a Bitcoin address", recipient)
		}
	case model.CkETH:
		if !common.IsHexAddress(recipient) {
			return invalid("recipient", "%q is not an Ethereum address", recipient)
		}
	case model.CkSOL:
		if len(base58.Decode(recipient)) != solanaKeySize {
			return invalid("recipient", "%q is not a Solana address", recipient)
		}
	default:
		return invalid("mode", "%s has no native network", asset)
	}
	return nil
}
