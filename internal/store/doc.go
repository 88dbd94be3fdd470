// Package store provides the vault's encrypted stores on top of a
// domain.KeyValueStore.
//
// The package includes:
//   - SessionStore: the encrypted, bounded session ledger
//   - LegacyStore: read-only access to sessions in the deprecated format
//   - AgreementStore: the jittered "terms accepted" cache
//
// Stores never surface cryptographic or parse failures from reads. They
// recover instead (rotate the key, wipe entries, or skip the write) and
// report an empty result, so a damaged store looks like a fresh one.
package store
