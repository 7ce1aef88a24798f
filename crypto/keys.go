package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part of an identity.
type AddressPrefix string

const (
	// StakePrefix marks user and authority identities.
	StakePrefix AddressPrefix = "stk"
	// DerivedPrefix marks program-derived identities such as vaults.
	DerivedPrefix AddressPrefix = "stkd"
)

// ErrUnknownPrefix is returned when decoding an address from another network.
var ErrUnknownPrefix = errors.New("crypto: unknown address prefix")

func (p AddressPrefix) known() bool {
	return p == StakePrefix || p == DerivedPrefix
}

// Address is a 20-byte ledger identity paired with its display prefix.
type Address struct {
	prefix AddressPrefix
	raw    [20]byte
}

// NewAddress validates the prefix and length of b.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if !prefix.known() {
		return Address{}, fmt.Errorf("%w %q", ErrUnknownPrefix, prefix)
	}
	if len(b) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(b))
	}
	addr := Address{prefix: prefix}
	copy(addr.raw[:], b)
	return addr, nil
}

// MustNewAddress is NewAddress for inputs known to be valid.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// FromRaw wraps a user or authority identity.
func FromRaw(raw [20]byte) Address {
	return Address{prefix: StakePrefix, raw: raw}
}

// FromDerived wraps a program-derived identity.
func FromDerived(raw [20]byte) Address {
	return Address{prefix: DerivedPrefix, raw: raw}
}

// String renders the bech32 form, or "" for the zero Address.
func (a Address) String() string {
	if a.prefix == "" {
		return ""
	}
	conv, err := bech32.ConvertBits(a.raw[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := a.raw
	return out[:]
}

// Raw returns the identity as stored in ledger records.
func (a Address) Raw() [20]byte { return a.raw }

func (a Address) Prefix() AddressPrefix { return a.prefix }

// IsZero reports whether the identity bytes are all zero.
func (a Address) IsZero() bool { return a.raw == [20]byte{} }

// DecodeAddress parses a bech32 identity carrying one of the ledger prefixes.
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

// ErrDerivedIdentity is returned when a program-derived identity is offered
// where only a user identity may appear.
var ErrDerivedIdentity = errors.New("crypto: derived identity cannot act as a user")

// DecodeUserAddress parses an identity that must carry StakePrefix. Callers,
// token subjects and genesis recipients go through it.
func DecodeUserAddress(addrStr string) (Address, error) {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return Address{}, err
	}
	if addr.prefix != StakePrefix {
		return Address{}, fmt.Errorf("%w: prefix %q", ErrDerivedIdentity, addr.prefix)
	}
	return addr, nil
}

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// PublicKey is the public half of a PrivateKey.
type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the 32-byte scalar.
func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address derives the stake identity controlled by the key.
func (k *PublicKey) Address() Address {
	return FromRaw(ethcrypto.PubkeyToAddress(*k.PublicKey))
}
