package interfaces

import domaintypes "credvault/internal/domain/types"

// KeyValueStore is the string key-value persistence every store sits on.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set writes a single entry.
	Set(key, value string) error
	// SetMany writes all entries together or none of them.
	SetMany(entries map[string]string) error
	// Delete removes keys; missing keys are ignored.
	Delete(keys ...string) error
	// Close releases the underlying handle.
	Close() error
}

// LedgerStore persists the encrypted session ledger.
type LedgerStore interface {
	Load() domaintypes.Ledger
	Save(ledger domaintypes.Ledger) error
	Clear() error
}

// LegacyStore reads sessions written by the deprecated storage format.
type LegacyStore interface {
	Retrieve() (domaintypes.Ledger, bool)
	Clear() error
}

// AgreementStore caches the user's acceptance of the legal terms.
type AgreementStore interface {
	HasValidAgreement(userID domaintypes.UserID) bool
	StoreAgreement(userID domaintypes.UserID) error
}
