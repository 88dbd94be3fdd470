package interfaces

import (
	"context"

	domaintypes "credvault/internal/domain/types"
)

// ResumeFunc hands a stored session to the caller's login layer, which
// validates and refreshes the token as it sees fit.
type ResumeFunc func(ctx context.Context, session domaintypes.Session) error

// SessionEvent describes a committed change to the ledger.
type SessionEvent struct {
	Kind    SessionEventKind
	UserID  domaintypes.UserID
	Session domaintypes.Session
}

// SessionEventKind enumerates ledger changes.
type SessionEventKind int

const (
	EventPersisted SessionEventKind = iota + 1
	EventRemoved
	EventCleared
)

// String returns a short name for the event kind.
func (k SessionEventKind) String() string {
	switch k {
	case EventPersisted:
		return "persisted"
	case EventRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// SessionObserver is notified after each committed ledger change.
type SessionObserver interface {
	OnSessionEvent(event SessionEvent)
}

// SessionManager is the public session API consumed by the login layer.
type SessionManager interface {
	Persist(session domaintypes.Session) error
	Resume(ctx context.Context, userID domaintypes.UserID, fn ResumeFunc) error
	ResumeLast(ctx context.Context, fn ResumeFunc) error
	Remove(userID domaintypes.UserID) error
	RemoveLast() error
	RemoveAll() error
	Sessions() domaintypes.Ledger
	Subscribe(observer SessionObserver) (unsubscribe func())
}
