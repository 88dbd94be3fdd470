package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"credvault/internal/domain"
)

// Service is the session manager consumed by the login layer.
//
// The ledger is read from the store once, at construction, and every
// mutation rewrites it under the service's lock. Resume delegates run
// without the lock held.
type Service struct {
	ledgerStore domain.LedgerStore
	legacyStore domain.LegacyStore
	log         *logrus.Entry
	now         func() time.Time
	max         int

	mu     sync.Mutex
	ledger domain.Ledger

	obsMu     sync.Mutex
	observers map[int]domain.SessionObserver
	nextObs   int
}

// Options tune a Service. The zero value is usable.
type Options struct {
	Logger      *logrus.Logger
	Now         func() time.Time
	MaxSessions int
}

// New loads the ledger from ledgerStore and returns a ready Service.
// legacyStore may be nil when there is no legacy data to migrate.
func New(ledgerStore domain.LedgerStore, legacyStore domain.LegacyStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = domain.MaxSessions
	}
	return &Service{
		ledgerStore: ledgerStore,
		legacyStore: legacyStore,
		log:         opts.Logger.WithField("component", "session"),
		now:         opts.Now,
		max:         opts.MaxSessions,
		ledger:      ledgerStore.Load(),
		observers:   make(map[int]domain.SessionObserver),
	}
}

// Persist stores session as the user's current session, replacing any
// previous one and evicting the least recently active sessions beyond the
// cap. Transient sessions and sessions with structurally invalid tokens are
// ignored. Any legacy data is discarded.
func (s *Service) Persist(session domain.Session) error {
	entry := s.log.WithField("user_id", session.UserID.String())
	switch {
	case session.Transient:
		entry.Warn("transient session not persisted")
		return nil
	case session.UserID == "" || !session.Token.Valid(session.UserID):
		entry.Warn("refusing to persist session with invalid token")
		return nil
	}
	if session.LastActive.IsZero() {
		session.LastActive = s.now()
	}
	session.LastActive = session.LastActive.UTC()

	s.mu.Lock()
	previous, hadPrevious := s.ledger.Find(session.UserID)
	next := append(s.ledger.Without(session.UserID), session).Normalize(s.max)
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.clearLegacy()
	s.mu.Unlock()

	if _, kept := next.Find(session.UserID); !kept {
		// Older than every session in a full ledger.
		entry.Debug("session evicted on arrival")
		if hadPrevious {
			s.notify(domain.SessionEvent{Kind: domain.EventRemoved, UserID: session.UserID, Session: previous})
		}
		return nil
	}
	entry.Debug("session persisted")
	s.notify(domain.SessionEvent{Kind: domain.EventPersisted, UserID: session.UserID, Session: session})
	return nil
}

// Resume hands userID's stored session to fn. Sessions whose tokens no
// longer validate are pruned first. It returns domain.ErrSessionNotFound
// when there is nothing to resume.
func (s *Service) Resume(ctx context.Context, userID domain.UserID, fn domain.ResumeFunc) error {
	s.mu.Lock()
	s.prune()
	session, ok := s.ledger.Find(userID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, userID)
	}
	return s.resume(ctx, session, fn)
}

// ResumeLast hands the most recently active session to fn. When the ledger
// is empty the legacy store is consulted once and any sessions found there
// are adopted into the ledger.
func (s *Service) ResumeLast(ctx context.Context, fn domain.ResumeFunc) error {
	s.mu.Lock()
	s.prune()
	var adopted domain.Ledger
	if len(s.ledger) == 0 {
		adopted = s.migrateLegacy()
	}
	session, ok := s.ledger.Latest()
	s.mu.Unlock()

	for _, a := range adopted {
		s.notify(domain.SessionEvent{Kind: domain.EventPersisted, UserID: a.UserID, Session: a})
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.resume(ctx, session, fn)
}

// Remove deletes userID's session. Removing an unknown user is a no-op.
func (s *Service) Remove(userID domain.UserID) error {
	s.mu.Lock()
	removed, ok, err := s.remove(userID)
	s.mu.Unlock()
	if err != nil || !ok {
		return err
	}

	s.log.WithField("user_id", userID.String()).Debug("session removed")
	s.notify(domain.SessionEvent{Kind: domain.EventRemoved, UserID: userID, Session: removed})
	return nil
}

// RemoveLast evicts the least recently active session, the one at the end
// of the ledger.
func (s *Service) RemoveLast() error {
	s.mu.Lock()
	oldest, ok := s.ledger.Oldest()
	if !ok {
		s.mu.Unlock()
		return nil
	}
	removed, ok, err := s.remove(oldest.UserID)
	s.mu.Unlock()
	if err != nil || !ok {
		return err
	}

	s.log.WithField("user_id", removed.UserID.String()).Debug("least recently active session removed")
	s.notify(domain.SessionEvent{Kind: domain.EventRemoved, UserID: removed.UserID, Session: removed})
	return nil
}

// RemoveAll deletes every stored session, legacy ones included.
func (s *Service) RemoveAll() error {
	s.mu.Lock()
	s.clearLegacy()
	if err := s.ledgerStore.Clear(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("remove all sessions: %w", err)
	}
	s.ledger = nil
	s.mu.Unlock()

	s.log.Info("all sessions removed")
	s.notify(domain.SessionEvent{Kind: domain.EventCleared})
	return nil
}

// Sessions returns a snapshot of the ledger, most recently active first.
func (s *Service) Sessions() domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.Ledger, len(s.ledger))
	copy(out, s.ledger)
	return out
}

// Subscribe registers observer for ledger events. The returned function
// removes it again.
func (s *Service) Subscribe(observer domain.SessionObserver) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = observer
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Service) resume(ctx context.Context, session domain.Session, fn domain.ResumeFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn(ctx, session)
}

// remove drops userID from the ledger. Callers hold mu.
func (s *Service) remove(userID domain.UserID) (domain.Session, bool, error) {
	removed, ok := s.ledger.Find(userID)
	if !ok {
		return domain.Session{}, false, nil
	}
	if err := s.commit(s.ledger.Without(userID)); err != nil {
		return domain.Session{}, false, fmt.Errorf("remove session: %w", err)
	}
	return removed, true, nil
}

// commit saves next and adopts it as the in-memory ledger. Callers hold mu.
func (s *Service) commit(next domain.Ledger) error {
	if err := s.ledgerStore.Save(next); err != nil {
		return err
	}
	s.ledger = next
	return nil
}

// prune drops sessions whose tokens no longer validate. Callers hold mu.
func (s *Service) prune() {
	valid := make(domain.Ledger, 0, len(s.ledger))
	for _, session := range s.ledger {
		if session.Token.Valid(session.UserID) {
			valid = append(valid, session)
			continue
		}
		s.log.WithField("user_id", session.UserID.String()).Warn("pruning session with invalid token")
	}
	if len(valid) == len(s.ledger) {
		return
	}
	if err := s.commit(valid); err != nil {
		s.log.WithError(err).Error("could not persist pruned ledger")
		s.ledger = valid
	}
}

// migrateLegacy adopts legacy sessions into the empty ledger and returns
// them. Callers hold mu.
func (s *Service) migrateLegacy() domain.Ledger {
	if s.legacyStore == nil {
		return nil
	}
	legacy, ok := s.legacyStore.Retrieve()
	if !ok {
		return nil
	}
	adopted := make(domain.Ledger, 0, len(legacy))
	for _, session := range legacy {
		if session.Token.Valid(session.UserID) {
			adopted = append(adopted, session)
		}
	}
	adopted = adopted.Normalize(s.max)
	if len(adopted) == 0 {
		s.clearLegacy()
		return nil
	}
	if err := s.commit(adopted); err != nil {
		// Keep the legacy data so the migration can be retried.
		s.log.WithError(err).Error("could not adopt legacy sessions")
		return nil
	}
	s.clearLegacy()
	s.log.WithField("sessions", len(adopted)).Info("legacy sessions migrated")
	return adopted
}

func (s *Service) clearLegacy() {
	if s.legacyStore == nil {
		return
	}
	if err := s.legacyStore.Clear(); err != nil {
		s.log.WithError(err).Error("could not clear legacy sessions")
	}
}

func (s *Service) notify(event domain.SessionEvent) {
	s.obsMu.Lock()
	observers := make([]domain.SessionObserver, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.Unlock()

	for _, o := range observers {
		o.OnSessionEvent(event)
	}
}

// Compile-time assertion that Service implements domain.SessionManager.
var _ domain.SessionManager = (*Service)(nil)
