// Package identity holds the principal type that names users and canisters.
package identity

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// MaxPrincipalLength is the longest principal the platform issues.
const MaxPrincipalLength = 29

var (
	// ErrInvalidPrincipal wraps every principal parsing failure.
	ErrInvalidPrincipal = errors.New("invalid principal")

	encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	// Anonymous is the principal used by unauthenticated callers.
	Anonymous = Principal{raw: "\x04"}
)

// Principal is an immutable platform principal. The zero value is the management canister.
type Principal struct {
	raw string
}

// PrincipalFromBytes copies b into a Principal.
func PrincipalFromBytes(b []byte) (Principal, error) {
	if len(b) > MaxPrincipalLength {
		return Principal{}, fmt.Errorf("%w: %d bytes", ErrInvalidPrincipal, len(b))
	}
	return Principal{raw: string(b)}, nil
}

// ParsePrincipal decodes the dashed textual form, verifying its checksum.
func ParsePrincipal(text string) (Principal, error) {
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := encoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("%w %q: %v", ErrInvalidPrincipal, text, err)
	}
	if len(decoded) < 4 {
		return Principal{}, fmt.Errorf("%w %q: too short", ErrInvalidPrincipal, text)
	}
	p, err := PrincipalFromBytes(decoded[4:])
	if err != nil {
		return Principal{}, err
	}
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(decoded[4:]) {
		return Principal{}, fmt.Errorf("%w %q: checksum mismatch", ErrInvalidPrincipal, text)
	}
	if p.String() != text {
		return Principal{}, fmt.Errorf("%w %q: not in canonical form", ErrInvalidPrincipal, text)
	}
	return p, nil
}

// MustParsePrincipal is ParsePrincipal for constants; it panics on error.
func MustParsePrincipal(text string) Principal {
	p, err := ParsePrincipal(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Bytes returns a copy of the raw principal bytes.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return p == Anonymous
}

// String renders the lowercase dashed textual form.
func (p Principal) String() string {
	buf := make([]byte, 4+len(p.raw))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE([]byte(p.raw)))
	copy(buf[4:], p.raw)

	enc := strings.ToLower(encoding.EncodeToString(buf))
	var b strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := min(i+5, len(enc))
		b.WriteString(enc[i:end])
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
