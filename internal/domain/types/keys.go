package types

import "time"

// KeyMaterial is the device key pair plus its validity window.
//
// A zero ValidUntil means the backend cannot express expiry (NEVER).
type KeyMaterial struct {
	ID         KeyID
	Strategy   Strategy
	Public     []byte
	Private    []byte
	ValidUntil time.Time
}

// Expires reports whether the key pair has a bounded validity window.
func (k KeyMaterial) Expires() bool { return !k.ValidUntil.IsZero() }

// Empty reports whether no key pair is present.
func (k KeyMaterial) Empty() bool { return len(k.Public) == 0 || len(k.Private) == 0 }
