package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part of an encoded identity.
type AddressPrefix string

// JFPrefix is the prefix for every marketplace identity.
const JFPrefix AddressPrefix = "jf"

// Address is a 20-byte identity with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [20]byte
}

// NewAddress wraps b. It fails unless b is exactly 20 bytes long.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long, got %d", len(b))
	}
	var out Address
	out.prefix = prefix
	copy(out.bytes[:], b)
	return out, nil
}

// MustNewAddress is NewAddress for inputs known to be well formed.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 20 bytes.
func (a Address) Bytes() [20]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// DecodeAddress parses a bech32 identity.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ParseIdentity accepts a jf bech32 identity or 0x-prefixed hex.
func ParseIdentity(s string) ([20]byte, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("identity required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return [20]byte{}, fmt.Errorf("invalid hex identity: %w", err)
		}
		addr, err := NewAddress(JFPrefix, raw)
		if err != nil {
			return [20]byte{}, err
		}
		return addr.Bytes(), nil
	}
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	if addr.Prefix() != JFPrefix {
		return [20]byte{}, fmt.Errorf("unexpected identity prefix %q", addr.Prefix())
	}
	return addr.Bytes(), nil
}

// DeriveIdentity maps an arbitrary label onto an identity by taking the last
// 20 bytes of its keccak256 digest. Used for well-known system accounts.
func DeriveIdentity(label string) [20]byte {
	digest := crypto.Keccak256([]byte(label))
	var out [20]byte
	copy(out[:], digest[12:])
	return out
}
