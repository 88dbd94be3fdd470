package domain

import (
	interfaces "credvault/internal/domain/interfaces"
	types "credvault/internal/domain/types"
)

// MaxSessions bounds the number of sessions kept in a ledger.
const MaxSessions = types.MaxSessions

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID         = types.UserID
	KeyID          = types.KeyID
	Strategy       = types.Strategy
	KeyMaterial    = types.KeyMaterial
	EncryptedBlob  = types.EncryptedBlob
	UserToken      = types.UserToken
	Session        = types.Session
	Ledger         = types.Ledger
	AgreementEntry = types.AgreementEntry
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyProvider      = interfaces.KeyProvider
	KeyValueStore    = interfaces.KeyValueStore
	LedgerStore      = interfaces.LedgerStore
	LegacyStore      = interfaces.LegacyStore
	AgreementStore   = interfaces.AgreementStore
	SessionManager   = interfaces.SessionManager
	SessionObserver  = interfaces.SessionObserver
	SessionEvent     = interfaces.SessionEvent
	SessionEventKind = interfaces.SessionEventKind
	ResumeFunc       = interfaces.ResumeFunc
)

// Session event kinds.
const (
	EventPersisted = interfaces.EventPersisted
	EventRemoved   = interfaces.EventRemoved
	EventCleared   = interfaces.EventCleared
)
