package types

import (
	"sort"
	"time"
)

// MaxSessions bounds the number of sessions kept in a ledger.
const MaxSessions = 10

// Session is one signed-in user on this device. Sessions are values: every
// mutation replaces the whole record.
type Session struct {
	LastActive time.Time `json:"last_active"`
	UserID     UserID    `json:"user_id"`
	Token      UserToken `json:"token"`

	// Transient sessions live only in memory and are never persisted.
	Transient bool `json:"-"`
}

// Ledger is the ordered set of stored sessions, most recently active first.
type Ledger []Session

// Find returns the session for userID.
func (l Ledger) Find(userID UserID) (Session, bool) {
	for _, s := range l {
		if s.UserID == userID {
			return s, true
		}
	}
	return Session{}, false
}

// Without returns a copy of l with every session for userID removed.
func (l Ledger) Without(userID UserID) Ledger {
	out := make(Ledger, 0, len(l))
	for _, s := range l {
		if s.UserID != userID {
			out = append(out, s)
		}
	}
	return out
}

// Normalize collapses duplicate users (keeping the most recent entry), sorts
// by LastActive descending and truncates to max entries.
func (l Ledger) Normalize(max int) Ledger {
	out := make(Ledger, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})

	seen := make(map[UserID]struct{}, len(out))
	uniq := out[:0]
	for _, s := range out {
		if _, dup := seen[s.UserID]; dup {
			continue
		}
		seen[s.UserID] = struct{}{}
		uniq = append(uniq, s)
	}
	if max > 0 && len(uniq) > max {
		uniq = uniq[:max]
	}
	return uniq
}

// Latest returns the most recently active session.
func (l Ledger) Latest() (Session, bool) {
	if len(l) == 0 {
		return Session{}, false
	}
	best := l[0]
	for _, s := range l[1:] {
		if s.LastActive.After(best.LastActive) {
			best = s
		}
	}
	return best, true
}


// Oldest returns the least recently active session.
func (l Ledger) Oldest() (Session, bool) {
	if len(l) == 0 {
		return Session{}, false
	}
	worst := l[0]
	for _, s := range l[1:] {
		if s.LastActive.Before(worst.LastActive) {
			worst = s
		}
	}
	return worst, true
}
