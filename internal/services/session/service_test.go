package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/keys"
	"credvault/internal/kv"
	"credvault/internal/services/session"
	"credvault/internal/store"
)

var t0 = time.Unix(1_700_000_000, 0).UTC()

type harness struct {
	kv       *kv.MemoryStore
	provider *keys.Provider
	logger   *logrus.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	kvs := kv.NewMemoryStore()
	p, err := keys.NewProvider(kvs, keys.Options{
		Strategy: crypto.StrategyX25519,
		Now:      func() time.Time { return t0 },
		Logger:   logger,
	})
	require.NoError(t, err)
	return &harness{kv: kvs, provider: p, logger: logger}
}

func (h *harness) ledgerStore() *store.SessionStore {
	return store.NewSessionStore(h.kv, h.provider, store.SessionStoreConfig{Logger: h.logger})
}

func (h *harness) legacyStore() *store.LegacyStore {
	return store.NewLegacyStore(h.kv, h.provider, h.logger, nil)
}

// manager opens a fresh Service over the harness entries, as a new process
// would.
func (h *harness) manager() *session.Service {
	return session.New(h.ledgerStore(), h.legacyStore(), session.Options{
		Logger: h.logger,
		Now:    func() time.Time { return t0 },
	})
}

func sess(user string, lastActive time.Time) domain.Session {
	return domain.Session{
		UserID:     domain.UserID(user),
		LastActive: lastActive,
		Token: domain.UserToken{
			AccessToken:  "access-" + user,
			RefreshToken: "refresh-" + user,
		},
	}
}

type recorder struct{ resumed []domain.Session }

func (r *recorder) fn(_ context.Context, s domain.Session) error {
	r.resumed = append(r.resumed, s)
	return nil
}

func (r *recorder) last(t *testing.T) domain.UserID {
	t.Helper()
	require.NotEmpty(t, r.resumed)
	return r.resumed[len(r.resumed)-1].UserID
}

type events struct{ got []domain.SessionEvent }

func (e *events) OnSessionEvent(ev domain.SessionEvent) { e.got = append(e.got, ev) }

func (e *events) kinds() []domain.SessionEventKind {
	out := make([]domain.SessionEventKind, 0, len(e.got))
	for _, ev := range e.got {
		out = append(out, ev.Kind)
	}
	return out
}

func TestPersistAndResume(t *testing.T) {
	m := newHarness(t).manager()
	s := sess("u1", t0)
	require.NoError(t, m.Persist(s))

	var rec recorder
	require.NoError(t, m.Resume(context.Background(), "u1", rec.fn))

	require.Len(t, rec.resumed, 1)
	assert.Equal(t, s, rec.resumed[0])
}

func TestPersistSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.manager().Persist(sess("u1", t0)))
	require.NoError(t, h.manager().Persist(sess("u2", t0.Add(time.Minute))))

	got := h.manager().Sessions()

	require.Len(t, got, 2)
	assert.Equal(t, domain.UserID("u2"), got[0].UserID)
	assert.Equal(t, domain.UserID("u1"), got[1].UserID)
}

func TestPersistStampsMissingLastActive(t *testing.T) {
	m := newHarness(t).manager()
	require.NoError(t, m.Persist(sess("u1", time.Time{})))

	got := m.Sessions()
	require.Len(t, got, 1)
	assert.Equal(t, t0, got[0].LastActive)
}

func TestPersistIgnoresUnusableSessions(t *testing.T) {
	foreignIDToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "someone-else"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]func(s *domain.Session){
		"transient":        func(s *domain.Session) { s.Transient = true },
		"no access token":  func(s *domain.Session) { s.Token.AccessToken = "" },
		"no refresh token": func(s *domain.Session) { s.Token.RefreshToken = "" },
		"no user":          func(s *domain.Session) { s.UserID = "" },
		"malformed id":     func(s *domain.Session) { s.Token.IDToken = "not-a-jwt" },
		"foreign subject":  func(s *domain.Session) { s.Token.IDToken = foreignIDToken },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			m := h.manager()
			var ev events
			m.Subscribe(&ev)

			s := sess("u1", t0)
			mutate(&s)
			require.NoError(t, m.Persist(s))

			assert.Empty(t, m.Sessions())
			assert.Empty(t, h.manager().Sessions())
			assert.Empty(t, ev.got)
		})
	}
}

func TestPersistAcceptsMatchingIDToken(t *testing.T) {
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	m := newHarness(t).manager()

	s := sess("u1", t0)
	s.Token.IDToken = idToken
	require.NoError(t, m.Persist(s))

	assert.Len(t, m.Sessions(), 1)
}

func TestPersistEvictsLeastRecentlyActive(t *testing.T) {
	h := newHarness(t)
	m := h.manager()
	for i := 0; i <= domain.MaxSessions; i++ {
		require.NoError(t, m.Persist(sess(fmt.Sprintf("u%d", i), t0.Add(time.Duration(i)*time.Minute))))
	}

	got := h.manager().Sessions()

	require.Len(t, got, domain.MaxSessions)
	_, found := got.Find("u0")
	assert.False(t, found)
	for i := 1; i <= domain.MaxSessions; i++ {
		_, found := got.Find(domain.UserID(fmt.Sprintf("u%d", i)))
		assert.True(t, found, "u%d", i)
	}
}

func TestPersistReplacesSameUser(t *testing.T) {
	m := newHarness(t).manager()
	first := sess("u1", t0)
	second := sess("u1", t0.Add(time.Hour))
	second.Token.AccessToken = "rotated"

	require.NoError(t, m.Persist(first))
	require.NoError(t, m.Persist(second))

	got := m.Sessions()
	require.Len(t, got, 1)
	assert.Equal(t, "rotated", got[0].Token.AccessToken)
}

func TestResumeLastFollowsActivity(t *testing.T) {
	m := newHarness(t).manager()
	ctx := context.Background()
	var rec recorder

	require.NoError(t, m.Persist(sess("u1", t0)))
	require.NoError(t, m.Persist(sess("u2", t0.Add(time.Minute))))
	require.NoError(t, m.ResumeLast(ctx, rec.fn))
	assert.Equal(t, domain.UserID("u2"), rec.last(t))

	require.NoError(t, m.Persist(sess("u1", t0.Add(2*time.Minute))))
	require.NoError(t, m.ResumeLast(ctx, rec.fn))
	assert.Equal(t, domain.UserID("u1"), rec.last(t))

	require.NoError(t, m.Remove("u1"))
	require.NoError(t, m.ResumeLast(ctx, rec.fn))
	assert.Equal(t, domain.UserID("u2"), rec.last(t))
}

func TestResumeUnknownUser(t *testing.T) {
	m := newHarness(t).manager()
	require.NoError(t, m.Persist(sess("u1", t0)))

	var rec recorder
	err := m.Resume(context.Background(), "nobody", rec.fn)

	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, rec.resumed)
}

func TestResumeLastEmpty(t *testing.T) {
	var rec recorder
	err := newHarness(t).manager().ResumeLast(context.Background(), rec.fn)

	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, rec.resumed)
}

func TestResumePropagatesDelegateError(t *testing.T) {
	m := newHarness(t).manager()
	require.NoError(t, m.Persist(sess("u1", t0)))
	boom := errors.New("refresh rejected")

	err := m.Resume(context.Background(), "u1", func(context.Context, domain.Session) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Len(t, m.Sessions(), 1)
}

func TestResumeHonoursCancelledContext(t *testing.T) {
	m := newHarness(t).manager()
	require.NoError(t, m.Persist(sess("u1", t0)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec recorder
	require.ErrorIs(t, m.Resume(ctx, "u1", rec.fn), context.Canceled)
	assert.Empty(t, rec.resumed)
}

func TestResumePrunesInvalidStoredSessions(t *testing.T) {
	h := newHarness(t)
	broken := sess("broken", t0.Add(time.Hour))
	broken.Token.RefreshToken = ""
	require.NoError(t, h.ledgerStore().Save(domain.Ledger{broken, sess("u1", t0)}))

	m := h.manager()
	var rec recorder
	require.ErrorIs(t, m.Resume(context.Background(), "broken", rec.fn), domain.ErrSessionNotFound)

	require.NoError(t, m.ResumeLast(context.Background(), rec.fn))
	assert.Equal(t, domain.UserID("u1"), rec.last(t))
	assert.Len(t, h.manager().Sessions(), 1)
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	m := h.manager()
	require.NoError(t, m.Persist(sess("u1", t0)))
	require.NoError(t, m.Persist(sess("u2", t0.Add(time.Minute))))

	require.NoError(t, m.Remove("u1"))
	require.NoError(t, m.Remove("u1"))

	got := h.manager().Sessions()
	require.Len(t, got, 1)
	assert.Equal(t, domain.UserID("u2"), got[0].UserID)
}

func TestRemoveLastEvictsLeastRecentlyActive(t *testing.T) {
	h := newHarness(t)
	m := h.manager()
	require.NoError(t, m.RemoveLast())
	require.NoError(t, m.Persist(sess("old", t0)))
	require.NoError(t, m.Persist(sess("new", t0.Add(time.Hour))))
	var ev events
	m.Subscribe(&ev)

	require.NoError(t, m.RemoveLast())

	got := h.manager().Sessions()
	require.Len(t, got, 1)
	assert.Equal(t, domain.UserID("new"), got[0].UserID)
	require.Len(t, ev.got, 1)
	assert.Equal(t, domain.EventRemoved, ev.got[0].Kind)
	assert.Equal(t, domain.UserID("old"), ev.got[0].UserID)
}

func TestRemoveAll(t *testing.T) {
	h := newHarness(t)
	m := h.manager()
	require.NoError(t, m.Persist(sess("u1", t0)))
	require.NoError(t, m.Persist(sess("u2", t0)))

	require.NoError(t, m.RemoveAll())

	assert.Empty(t, m.Sessions())
	assert.Empty(t, h.manager().Sessions())
	require.ErrorIs(t, m.ResumeLast(context.Background(), nil), domain.ErrSessionNotFound)
}

func writeLegacy(t *testing.T, h *harness, records ...map[string]any) {
	t.Helper()
	km, err := h.provider.KeyPair()
	require.NoError(t, err)
	plain, err := json.Marshal(records)
	require.NoError(t, err)
	stored, wrapped, err := crypto.SealLegacy(plain, km)
	require.NoError(t, err)
	require.NoError(t, h.kv.SetMany(map[string]string{
		store.LegacyDataEntry: stored,
		store.LegacyKeyEntry:  crypto.B64(wrapped),
	}))
}

func legacyRecord(user string, lastActive time.Time) map[string]any {
	return map[string]any{
		"user_id":       user,
		"last_active":   lastActive.UnixMilli(),
		"access_token":  "access-" + user,
		"refresh_token": "refresh-" + user,
	}
}

func legacyPresent(t *testing.T, h *harness) bool {
	t.Helper()
	_, ok, err := h.kv.Get(store.LegacyDataEntry)
	require.NoError(t, err)
	return ok
}

func TestResumeLastMigratesLegacy(t *testing.T) {
	h := newHarness(t)
	writeLegacy(t, h, legacyRecord("old", t0), legacyRecord("older", t0.Add(-time.Hour)))
	m := h.manager()
	var ev events
	m.Subscribe(&ev)

	var rec recorder
	require.NoError(t, m.ResumeLast(context.Background(), rec.fn))

	assert.Equal(t, domain.UserID("old"), rec.last(t))
	assert.Equal(t, "refresh-old", rec.resumed[0].Token.RefreshToken)
	assert.False(t, legacyPresent(t, h))
	assert.Len(t, h.manager().Sessions(), 2)
	assert.Equal(t, []domain.SessionEventKind{domain.EventPersisted, domain.EventPersisted}, ev.kinds())
}

func TestResumeLastPrefersLedgerOverLegacy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ledgerStore().Save(domain.Ledger{sess("current", t0)}))
	writeLegacy(t, h, legacyRecord("old", t0.Add(time.Hour)))

	var rec recorder
	require.NoError(t, h.manager().ResumeLast(context.Background(), rec.fn))

	assert.Equal(t, domain.UserID("current"), rec.last(t))
	assert.True(t, legacyPresent(t, h))
}

func TestPersistDiscardsLegacy(t *testing.T) {
	h := newHarness(t)
	writeLegacy(t, h, legacyRecord("old", t0))

	require.NoError(t, h.manager().Persist(sess("u1", t0)))

	assert.False(t, legacyPresent(t, h))
	var rec recorder
	require.NoError(t, h.manager().ResumeLast(context.Background(), rec.fn))
	assert.Equal(t, domain.UserID("u1"), rec.last(t))
}

func TestPersistOlderThanFullLedgerIsNotAnnounced(t *testing.T) {
	m := newHarness(t).manager()
	for i := 1; i <= domain.MaxSessions; i++ {
		require.NoError(t, m.Persist(sess(fmt.Sprintf("u%d", i), t0.Add(time.Duration(i)*time.Minute))))
	}
	var ev events
	m.Subscribe(&ev)

	require.NoError(t, m.Persist(sess("stale", t0)))

	got := m.Sessions()
	assert.Len(t, got, domain.MaxSessions)
	_, found := got.Find("stale")
	assert.False(t, found)
	assert.Empty(t, ev.got)
}

// rejectingLedger loads normally but refuses every write.
type rejectingLedger struct{ *store.SessionStore }

func (rejectingLedger) Save(domain.Ledger) error { return domain.ErrKeyGeneration }

func TestPersistFailureKeepsLegacy(t *testing.T) {
	h := newHarness(t)
	writeLegacy(t, h, legacyRecord("old", t0))
	m := session.New(rejectingLedger{h.ledgerStore()}, h.legacyStore(), session.Options{Logger: h.logger})
	var ev events
	m.Subscribe(&ev)

	err := m.Persist(sess("u1", t0))

	require.ErrorIs(t, err, domain.ErrKeyGeneration)
	assert.True(t, legacyPresent(t, h))
	assert.Empty(t, m.Sessions())
	assert.Empty(t, ev.got)
}

func TestObservers(t *testing.T) {
	m := newHarness(t).manager()
	var ev events
	unsubscribe := m.Subscribe(&ev)

	require.NoError(t, m.Persist(sess("u1", t0)))
	require.NoError(t, m.Persist(sess("u2", t0)))
	require.NoError(t, m.Remove("u1"))
	require.NoError(t, m.Remove("missing"))
	require.NoError(t, m.RemoveAll())

	assert.Equal(t, []domain.SessionEventKind{
		domain.EventPersisted,
		domain.EventPersisted,
		domain.EventRemoved,
		domain.EventCleared,
	}, ev.kinds())
	assert.Equal(t, domain.UserID("u1"), ev.got[2].UserID)

	unsubscribe()
	require.NoError(t, m.Persist(sess("u3", t0)))
	assert.Len(t, ev.got, 4)
}
