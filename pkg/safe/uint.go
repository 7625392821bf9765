// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import (
	"fmt"
	"math"
	"math/big"
)

// Integer is the set of integer kinds accepted by the narrowing helpers.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint8 | ~uint32 | ~uint64
}

// Uint8 converts an integer to uint8 with range validation.
func Uint8[T Integer](v T) (uint8, error) {
	u, err := toUint64(v)
	if err != nil || u > math.MaxUint8 {
		return 0, fmt.Errorf("value %d out of uint8 range", v)
	}
	return uint8(u), nil
}

// Uint32 converts an integer to uint32 with range validation.
func Uint32[T Integer](v T) (uint32, error) {
	u, err := toUint64(v)
	if err != nil || u > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(u), nil
}

// Uint64 converts an integer to uint64 while guarding against negatives.
func Uint64[T Integer](v T) (uint64, error) {
	return toUint64(v)
}

// Uint64FromBig narrows an arbitrary precision natural to uint64.
func Uint64FromBig(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("nil value")
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %s out of uint64 range", v.String())
	}
	return v.Uint64(), nil
}

func toUint64[T Integer](v T) (uint64, error) {
	var zero T
	if v < zero {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return uint64(v), nil
}
