package interfaces

import (
	"time"

	domaintypes "credvault/internal/domain/types"
)

// KeyProvider owns the device key pair and its rotation policy.
type KeyProvider interface {
	// KeyPair returns the current pair, generating one on first use.
	KeyPair() (domaintypes.KeyMaterial, error)
	// Rotate replaces the pair unconditionally. Everything wrapped under the
	// previous pair becomes unreadable.
	Rotate() (domaintypes.KeyMaterial, error)
	// IsCloseToExpiration reports whether the pair expires within threshold.
	// Pairs without an expiry never are.
	IsCloseToExpiration(threshold time.Duration) bool
}
