package domain

import "errors"

var (
	// ErrInvalidKey is returned when a wrapped key or payload cannot be opened
	// under the current key pair. Unwrap and decrypt failures are not
	// distinguished.
	ErrInvalidKey = errors.New("invalid key")
	// ErrCorruptData is returned when decrypted bytes do not parse as a ledger.
	ErrCorruptData = errors.New("corrupt session data")
	// ErrSessionNotFound is returned when no usable session matches a lookup.
	ErrSessionNotFound = errors.New("session not found")
	// ErrKeyGeneration is returned when a key pair cannot be produced or persisted.
	ErrKeyGeneration = errors.New("key pair generation failed")
	// ErrInvalidState is returned when an operation is called on a closed or
	// misconfigured component.
	ErrInvalidState = errors.New("invalid state")
	// ErrStoreInUse is returned when a second handle is opened on a store
	// already owned by this process.
	ErrStoreInUse = errors.New("store already open in this process")
)
