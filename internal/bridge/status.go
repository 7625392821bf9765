package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/pkg/safe"
)

type UtxoKind string

const (
	Checked       UtxoKind = "Checked"
	Minted        UtxoKind = "Minted"
	ValueTooSmall UtxoKind = "ValueTooSmall"
	Tainted       UtxoKind = "Tainted"
)

// UtxoStatus is the bridge's view of one deposited output.
type UtxoStatus struct {
	Kind          UtxoKind
	Confirmations uint32
	Value         uint64
	// Minted only.
	BlockIndex   uint64
	MintedAmount uint64
	Height       uint32
	TxID         string
	Vout         uint32
	// ValueTooSmall only.
	MinValue uint64
	// Tainted only.
	Address string
}

// UtxoResult holds exactly one of Status or Err.
type UtxoResult struct {
	Status *UtxoStatus
	Err    *UpdateBalanceError
}

type DepositState string

const (
	DepositPending  DepositState = "pending"
	DepositMinted   DepositState = "minted"
	DepositRejected DepositState = "rejected"
)

type DepositUtxo struct {
	Value         uint64
	Confirmations uint32
	State         DepositState
}

// DepositStatus aggregates one deposit check.
type DepositStatus struct {
	HasPendingDeposits bool
	Utxos              []DepositUtxo
	Errors             []*UpdateBalanceError
}

// Summarize folds per-output results into a DepositStatus. Deposits are
// pending while at least one output is Checked but not yet minted.
func Summarize(results []UtxoResult) DepositStatus {
	var s DepositStatus
	for _, r := range results {
		if r.Err != nil {
			s.Errors = append(s.Errors, r.Err)
			continue
		}
		if r.Status == nil {
			continue
		}
		u := DepositUtxo{Value: r.Status.Value, Confirmations: r.Status.Confirmations}
		switch r.Status.Kind {
		case Checked:
			u.State = DepositPending
			s.HasPendingDeposits = true
		case Minted:
			u.State = DepositMinted
		default:
			u.State = DepositRejected
		}
		s.Utxos = append(s.Utxos, u)
	}
	return s
}

// Pending counts outputs awaiting mint.
func (s DepositStatus) Pending() int {
	n := 0
	for _, u := range s.Utxos {
		if u.State == DepositPending {
			n++
		}
	}
	return n
}

type WithdrawalState string

const (
	// WithdrawalUnknown is reported when the bridge is not deployed.
	WithdrawalUnknown      WithdrawalState = "Unknown"
	WithdrawalPending      WithdrawalState = "Pending"
	WithdrawalSigning      WithdrawalState = "Signing"
	WithdrawalSending      WithdrawalState = "Sending"
	WithdrawalSubmitted    WithdrawalState = "Submitted"
	WithdrawalAmountTooLow WithdrawalState = "AmountTooLow"
	WithdrawalConfirmed    WithdrawalState = "Confirmed"
)

var withdrawalRank = map[WithdrawalState]int{
	WithdrawalUnknown:      0,
	WithdrawalPending:      1,
	WithdrawalSigning:      2,
	WithdrawalSending:      3,
	WithdrawalSubmitted:    4,
	WithdrawalAmountTooLow: 5,
	WithdrawalConfirmed:    5,
}

// WithdrawalStatus is one observation of a withdrawal. TxID is set from Sending on.
type WithdrawalStatus struct {
	State WithdrawalState
	TxID  string
}

// Terminal reports whether the withdrawal can no longer change state.
func (s WithdrawalStatus) Terminal() bool {
	return s.State == WithdrawalConfirmed || s.State == WithdrawalAmountTooLow
}

// Before reports whether s precedes next in the withdrawal lifecycle.
func (s WithdrawalStatus) Before(next WithdrawalStatus) bool {
	return withdrawalRank[s.State] < withdrawalRank[next.State]
}

type wireTx struct {
	TxID agent.Blob `json:"txid"`
}

func decodeWithdrawalStatus(v agent.Variant) (WithdrawalStatus, error) {
	s := WithdrawalStatus{State: WithdrawalState(v.Tag)}
	switch s.State {
	case WithdrawalPending, WithdrawalSigning, WithdrawalAmountTooLow:
		return s, nil
	case WithdrawalSending, WithdrawalSubmitted, WithdrawalConfirmed:
		var w wireTx
		if err := v.Decode(&w); err != nil {
			return WithdrawalStatus{}, err
		}
		txid, err := txidString(w.TxID)
		if err != nil {
			return WithdrawalStatus{}, err
		}
		s.TxID = txid
		return s, nil
	default:
		return WithdrawalStatus{}, fmt.Errorf("%w: withdrawal status %q", agent.ErrMalformedReply, v.Tag)
	}
}

// txidString renders txid bytes in the usual reversed display order.
func txidString(raw []byte) (string, error) {
	h, err := chainhash.NewHash(raw)
	if err != nil {
		return "", fmt.Errorf("%w: txid: %v", agent.ErrMalformedReply, err)
	}
	return h.String(), nil
}

type wireUtxo struct {
	Height   agent.Nat `json:"height"`
	Value    agent.Nat `json:"value"`
	Outpoint struct {
		TxID agent.Blob `json:"txid"`
		Vout agent.Nat  `json:"vout"`
	} `json:"outpoint"`
}

type wireUtxoStatus struct {
	Confirmations agent.Nat `json:"confirmations"`
	Value         agent.Nat `json:"value"`
	BlockIndex    agent.Nat `json:"block_index"`
	MintedAmount  agent.Nat `json:"minted_amount"`
	Utxo          *wireUtxo `json:"utxo"`
	MinValue      agent.Nat `json:"min_value"`
	Address       string    `json:"address"`
}

func decodeUtxoStatus(raw json.RawMessage) (*UtxoStatus, error) {
	var v agent.Variant
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var w wireUtxoStatus
	if err := v.Decode(&w); err != nil {
		return nil, err
	}

	s := &UtxoStatus{Kind: UtxoKind(v.Tag)}
	switch s.Kind {
	case Checked:
		confirmations, err := narrow32(w.Confirmations)
		if err != nil {
			return nil, err
		}
		s.Confirmations, s.Value = confirmations, uint64(w.Value)
	case Minted:
		s.BlockIndex, s.MintedAmount = uint64(w.BlockIndex), uint64(w.MintedAmount)
		if w.Utxo != nil {
			height, err := narrow32(w.Utxo.Height)
			if err != nil {
				return nil, err
			}
			vout, err := narrow32(w.Utxo.Outpoint.Vout)
			if err != nil {
				return nil, err
			}
			txid, err := txidString(w.Utxo.Outpoint.TxID)
			if err != nil {
				return nil, err
			}
			s.Height, s.Value, s.TxID, s.Vout = height, uint64(w.Utxo.Value), txid, vout
		}
	case ValueTooSmall:
		s.MinValue = uint64(w.MinValue)
	case Tainted:
		s.Address = w.Address
	default:
		return nil, fmt.Errorf("%w: utxo status %q", agent.ErrMalformedReply, v.Tag)
	}
	return s, nil
}

func narrow32(n agent.Nat) (uint32, error) {
	v, err := safe.Uint32(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", agent.ErrMalformedReply, err)
	}
	return v, nil
}
