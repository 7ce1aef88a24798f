package crypto

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// derivedMarker separates derived identities from key-derived ones in the
// hashing domain.
var derivedMarker = []byte("tierstake/derived")

// ErrNoViableBump is returned when no bump seed yields a derived identity.
var ErrNoViableBump = errors.New("crypto: no viable bump for derived address")

// CreateDerivedAddress hashes the seeds and bump into a 20-byte identity.
// The result is only valid when the digest carries the derived-address marker
// (high bit of the first digest byte clear); ok reports that condition.
func CreateDerivedAddress(bump uint8, seeds ...[]byte) (addr [20]byte, ok bool) {
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, []byte{bump}, derivedMarker)
	digest := crypto.Keccak256(parts...)
	copy(addr[:], digest[12:])
	return addr, digest[0]&0x80 == 0
}

// FindDerivedAddress searches bump seeds from 255 downwards and returns the
// first valid derived identity together with the bump that produced it.
func FindDerivedAddress(seeds ...[]byte) ([20]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, ok := CreateDerivedAddress(uint8(bump), seeds...)
		if ok {
			return addr, uint8(bump), nil
		}
	}
	return [20]byte{}, 0, ErrNoViableBump
}

// VerifyDerivedAddress checks that addr is the identity derived from seeds
// with the supplied bump.
func VerifyDerivedAddress(addr [20]byte, bump uint8, seeds ...[]byte) bool {
	derived, ok := CreateDerivedAddress(bump, seeds...)
	return ok && derived == addr
}
