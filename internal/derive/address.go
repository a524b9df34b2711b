// Package derive computes deterministic storage addresses for config
// records. Any caller can recompute an address from its namespace tag and
// entity keys without a directory service, which guarantees one canonical
// record per entity.
package derive

import (
	"crypto/sha256"
	"errors"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Namespace tags for derived addresses.
const (
	NamespaceTokenConfig = "token_config"
	NamespaceStoConfig   = "sto_config"
	NamespaceLockStatus  = "lock_status"
)

// ErrNoValidBump is returned when no bump in [0, 255] yields an off-curve
// address. Statistically unreachable: each bump is off-curve with
// probability ~1/2.
var ErrNoValidBump = errors.New("no valid bump found for seeds")

// Address derives a deterministic base58 address from a namespace tag and
// entity keys. The digest is SHA256(namespace|key1|...|keyN|bump); the bump
// search starts at 255 and decrements until the digest is not a valid
// ed25519 curve point, so derived addresses can never collide with wallet
// public keys.
func Address(namespace string, keys ...string) (string, uint8, error) {
	seed := namespace
	if len(keys) > 0 {
		seed += "|" + strings.Join(keys, "|")
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write([]byte(seed))
		h.Write([]byte{byte(bump)})
		digest := h.Sum(nil)

		if isOnCurve(digest) {
			continue
		}
		return base58.Encode(digest), uint8(bump), nil
	}

	return "", 0, ErrNoValidBump
}

// TokenConfigAddress derives the canonical TokenConfig address for a mint.
func TokenConfigAddress(mint string) (string, uint8, error) {
	return Address(NamespaceTokenConfig, mint)
}

// StoConfigAddress derives the canonical StoConfig address for a mint.
func StoConfigAddress(mint string) (string, uint8, error) {
	return Address(NamespaceStoConfig, mint)
}

// LockStatusAddress derives the canonical LockStatus address for an
// investor within an offering.
func LockStatusAddress(investor, mint string) (string, uint8, error) {
	return Address(NamespaceLockStatus, investor, mint)
}

// isOnCurve reports whether the 32-byte digest decodes to a valid ed25519
// curve point.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
