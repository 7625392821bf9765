package agent

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/goodnatureofminers/icwallet/pkg/safe"
)

// ErrMalformedReply is returned when a reply does not have the expected candid shape.
var ErrMalformedReply = errors.New("malformed reply")

// Nat is a candid nat or nat64 narrowed to uint64. It decodes from a JSON
// number or a decimal string and always encodes as a decimal string.
type Nat uint64

func (n Nat) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%d", uint64(n)))
}

func (n *Nat) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	text = strings.ReplaceAll(text, "_", "")
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return fmt.Errorf("%w: nat %s", ErrMalformedReply, string(data))
	}
	u, err := safe.Uint64FromBig(v)
	if err != nil {
		return fmt.Errorf("%w: nat: %v", ErrMalformedReply, err)
	}
	*n = Nat(u)
	return nil
}

// NatPtr converts an optional uint64 to an optional Nat.
func NatPtr(v *uint64) *Nat {
	if v == nil {
		return nil
	}
	n := Nat(*v)
	return &n
}

// Blob is a candid blob carried as lowercase hex.
type Blob []byte

func (b Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: blob: %v", ErrMalformedReply, err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: blob: %v", ErrMalformedReply, err)
	}
	*b = raw
	return nil
}

// Variant is a candid variant: an object with exactly one key naming the case.
type Variant struct {
	Tag   string
	Value json.RawMessage
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: variant: %v", ErrMalformedReply, err)
	}
	if len(fields) != 1 {
		return fmt.Errorf("%w: variant with %d cases", ErrMalformedReply, len(fields))
	}
	for tag, value := range fields {
		v.Tag = tag
		v.Value = value
	}
	return nil
}

func (v Variant) MarshalJSON() ([]byte, error) {
	value := v.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{v.Tag: value})
}

// Decode unmarshals the case payload into dst.
func (v Variant) Decode(dst any) error {
	if err := json.Unmarshal(v.Value, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedReply, v.Tag, err)
	}
	return nil
}

// Result is candid's Result<T, E>: exactly one of Ok or Err is set.
type Result struct {
	Ok  json.RawMessage `json:"Ok,omitempty"`
	Err json.RawMessage `json:"Err,omitempty"`
}

// Unwrap decodes Ok into ok and returns nil, or returns the raw Err payload.
func (r Result) Unwrap(ok any) (json.RawMessage, error) {
	switch {
	case r.Err != nil:
		return r.Err, nil
	case r.Ok != nil:
		if ok == nil {
			return nil, nil
		}
		if err := json.Unmarshal(r.Ok, ok); err != nil {
			return nil, fmt.Errorf("%w: Ok payload: %v", ErrMalformedReply, err)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: result without Ok or Err", ErrMalformedReply)
	}
}
