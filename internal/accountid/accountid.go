// Package accountid derives the legacy ledger account identifier from a principal and subaccount.
package accountid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/goodnatureofminers/icwallet/internal/identity"
)

const (
	// Size is the length of an account identifier in bytes.
	Size = 32
	// SubaccountSize is the length of a subaccount in bytes.
	SubaccountSize = 32
)

var (
	domainSeparator = []byte("\x0Aaccount-id")

	ErrSubaccountLength = errors.New("subaccount must be 32 bytes")
	ErrInvalidID        = errors.New("invalid account identifier")
)

// Subaccount selects one of an owner's accounts. The zero value is the default account.
type Subaccount [SubaccountSize]byte

// SubaccountFromBytes validates length and copies b.
func SubaccountFromBytes(b []byte) (Subaccount, error) {
	var s Subaccount
	if len(b) != SubaccountSize {
		return s, fmt.Errorf("%w: got %d", ErrSubaccountLength, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// ID is CRC32(hash) followed by the 28-byte SHA-224 hash.
type ID [Size]byte

// Derive computes the identifier for principal and subaccount. A nil subaccount means the default one.
func Derive(principal []byte, subaccount []byte) (ID, error) {
	var id ID
	if subaccount == nil {
		subaccount = make([]byte, SubaccountSize)
	}
	if len(subaccount) != SubaccountSize {
		return id, fmt.Errorf("%w: got %d", ErrSubaccountLength, len(subaccount))
	}

	h := sha256.New224()
	h.Write(domainSeparator)
	h.Write(principal)
	h.Write(subaccount)
	digest := h.Sum(nil)

	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(digest))
	copy(id[4:], digest)
	return id, nil
}

// FromPrincipal derives the identifier of p's account. sub may be nil.
func FromPrincipal(p identity.Principal, sub *Subaccount) ID {
	var raw []byte
	if sub != nil {
		raw = sub[:]
	}
	// raw is always nil or 32 bytes, so Derive cannot fail here
	id, _ := Derive(p.Bytes(), raw)
	return id
}

// Parse accepts 64 hex characters and verifies the embedded checksum.
func Parse(s string) (ID, error) {
	var id ID
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(Size) {
		return id, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidID, hex.EncodedLen(Size), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if binary.BigEndian.Uint32(id[:4]) != crc32.ChecksumIEEE(id[4:]) {
		return id, fmt.Errorf("%w: checksum mismatch", ErrInvalidID)
	}
	return id, nil
}

// String renders 64 lowercase hex characters.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
