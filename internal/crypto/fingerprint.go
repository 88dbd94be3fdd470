package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"credvault/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a key pair's public half.
//
// It hashes strategy and public key with SHA-256 and truncates to 10 bytes
// (20 hex chars), so the same bytes under two strategies never collide.
func Fingerprint(km domain.KeyMaterial) string {
	h := sha256.New()
	h.Write([]byte(km.Strategy))
	h.Write([]byte{0})
	h.Write(km.Public)
	return hex.EncodeToString(h.Sum(nil)[:10])
}
