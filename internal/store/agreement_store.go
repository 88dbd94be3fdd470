package store

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"credvault/internal/domain"
)

// AgreementEntryName is the entry holding the cached agreement.
const AgreementEntryName = "agreement_cache"

// Agreement expiry bounds. The expiry lands strictly between them.
const (
	MinAgreementTTL = 24 * time.Hour
	MaxAgreementTTL = 7 * 24 * time.Hour
)

// AgreementStore caches, per device, that a user accepted the legal terms.
// Only the most recent user is remembered.
type AgreementStore struct {
	kv    domain.KeyValueStore
	now   func() time.Time
	int63 func(n int64) int64
	log   *logrus.Entry
}

// AgreementOption customizes an AgreementStore.
type AgreementOption func(*AgreementStore)

// WithClock sets the time source.
func WithClock(now func() time.Time) AgreementOption {
	return func(a *AgreementStore) { a.now = now }
}

// WithRandom sets the jitter source; fn must return a value in [0, n).
func WithRandom(fn func(n int64) int64) AgreementOption {
	return func(a *AgreementStore) { a.int63 = fn }
}

// WithAgreementLogger sets the logger.
func WithAgreementLogger(logger *logrus.Logger) AgreementOption {
	return func(a *AgreementStore) { a.log = logger.WithField("component", "store.agreement") }
}

// NewAgreementStore returns an AgreementStore over kv.
func NewAgreementStore(kv domain.KeyValueStore, opts ...AgreementOption) *AgreementStore {
	a := &AgreementStore{
		kv:    kv,
		now:   time.Now,
		int63: rand.Int63n,
		log:   logrus.New().WithField("component", "store.agreement"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HasValidAgreement reports whether userID accepted the terms and the cached
// acceptance has not expired. Unreadable entries count as no agreement.
func (a *AgreementStore) HasValidAgreement(userID domain.UserID) bool {
	entry, ok := a.Entry()
	if !ok {
		return false
	}
	return entry.UserID == userID && entry.ExpiresAt.After(a.now())
}

// StoreAgreement records userID's acceptance with a jittered expiry,
// replacing any previous entry.
func (a *AgreementStore) StoreAgreement(userID domain.UserID) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidState)
	}
	entry := domain.AgreementEntry{UserID: userID, ExpiresAt: a.now().Add(a.ttl())}
	if err := a.kv.Set(AgreementEntryName, encodeAgreement(entry)); err != nil {
		return fmt.Errorf("store agreement: %w", err)
	}
	a.log.WithFields(logrus.Fields{
		"user_id":    string(userID),
		"expires_at": entry.ExpiresAt,
	}).Debug("agreement stored")
	return nil
}

// Entry returns the cached agreement, if one parses.
func (a *AgreementStore) Entry() (domain.AgreementEntry, bool) {
	raw, ok, err := a.kv.Get(AgreementEntryName)
	if err != nil {
		a.log.WithError(err).Error("agreement read failed")
		return domain.AgreementEntry{}, false
	}
	if !ok {
		return domain.AgreementEntry{}, false
	}
	entry, err := decodeAgreement(raw)
	if err != nil {
		a.log.WithError(err).Debug("malformed agreement entry")
		return domain.AgreementEntry{}, false
	}
	return entry, true
}

// ttl returns a duration strictly inside (MinAgreementTTL, MaxAgreementTTL).
func (a *AgreementStore) ttl() time.Duration {
	span := int64(MaxAgreementTTL - MinAgreementTTL)
	return MinAgreementTTL + 1 + time.Duration(a.int63(span-1))
}

func encodeAgreement(e domain.AgreementEntry) string {
	return string(e.UserID) + "|" + e.ExpiresAt.UTC().Format(time.RFC3339Nano)
}

func decodeAgreement(raw string) (domain.AgreementEntry, error) {
	i := strings.LastIndexByte(raw, '|')
	if i <= 0 {
		return domain.AgreementEntry{}, domain.ErrCorruptData
	}
	expires, err := time.Parse(time.RFC3339Nano, raw[i+1:])
	if err != nil {
		return domain.AgreementEntry{}, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	return domain.AgreementEntry{UserID: domain.UserID(raw[:i]), ExpiresAt: expires}, nil
}

// Compile-time assertion that AgreementStore implements domain.AgreementStore.
var _ domain.AgreementStore = (*AgreementStore)(nil)
