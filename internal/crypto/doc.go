// Package crypto exposes the primitives the vault is built on.
//
// Contents
//
//   - Asymmetric key-wrapping schemes, one per key strategy (SchemeFor):
//     RSA-2048 OAEP, X25519 ECIES and a hybrid ML-KEM-768 + X25519 KEM
//   - Hybrid encryption of payloads under a fresh AES-256-GCM key wrapped by
//     the device key pair (WrapEncrypt, UnwrapDecrypt)
//   - The deprecated AES-CBC payload format read by the legacy migrator
//     (OpenLegacy, SealLegacy)
//   - Base64 helpers and short public-key fingerprints
//
// # Notes
//
// Every decrypt path reports failure as domain.ErrInvalidKey without saying
// which layer failed. Callers treat any such blob as untrusted.
package crypto
