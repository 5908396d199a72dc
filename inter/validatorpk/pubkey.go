// Package validatorpk holds the session public keys validators announce at a
// session boundary. The dispute core never verifies signatures with them; it
// keeps them next to the validator ID so snapshots and logs identify the
// actual key a validator used in a session.
package validatorpk

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEmptyPubKey is returned when decoding zero bytes.
var ErrEmptyPubKey = errors.New("empty session pubkey")

// PubKey is a typed session key: one type byte followed by the raw key.
type PubKey struct {
	Type uint8
	Raw  []byte
}

// Types lists the key schemes a session key may use.
var Types = struct {
	Secp256k1 uint8
	Sr25519   uint8
	Ed25519   uint8
}{
	Secp256k1: 0xc0,
	Sr25519:   0xc1,
	Ed25519:   0xc2,
}

// Empty reports whether the key was never set.
func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

// String is the 0x-prefixed hex of Bytes().
func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes is [Type] + Raw.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

// Copy returns a key that does not share Raw with pk.
func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// FromString parses hex with or without the 0x prefix.
func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

// FromBytes splits b into type byte and raw key.
func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmptyPubKey
	}
	return PubKey{Type: b[0], Raw: common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (pk PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
