package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/metrics"
)

// Legacy entry names.
const (
	LegacyDataEntry = "legacy_session_data"
	LegacyKeyEntry  = "legacy_session_key"
)

// legacyRecord is one session as the deprecated format stored it. Times are
// epoch milliseconds.
type legacyRecord struct {
	UserID       string `json:"user_id"`
	LastActive   int64  `json:"last_active"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

func (r legacyRecord) session() domain.Session {
	s := domain.Session{
		UserID:     domain.UserID(r.UserID),
		LastActive: time.UnixMilli(r.LastActive).UTC(),
		Token: domain.UserToken{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			IDToken:      r.IDToken,
			Scope:        r.Scope,
		},
	}
	if r.ExpiresAt > 0 {
		s.Token.ExpiresAt = time.UnixMilli(r.ExpiresAt).UTC()
	}
	return s
}

// LegacyStore reads sessions left behind by the deprecated format. It never
// writes them; anything it cannot read is discarded.
type LegacyStore struct {
	kv      domain.KeyValueStore
	keys    domain.KeyProvider
	max     int
	log     *logrus.Entry
	metrics *metrics.Recorder
}

// NewLegacyStore returns a LegacyStore over kv.
func NewLegacyStore(kv domain.KeyValueStore, provider domain.KeyProvider, logger *logrus.Logger, rec *metrics.Recorder) *LegacyStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &LegacyStore{
		kv:      kv,
		keys:    provider,
		max:     domain.MaxSessions,
		log:     logger.WithField("component", "store.legacy"),
		metrics: rec,
	}
}

// Retrieve returns the legacy sessions. ok is false when there are none.
// Legacy data that cannot be decrypted or parsed is cleared.
func (l *LegacyStore) Retrieve() (domain.Ledger, bool) {
	data, hasData, errData := l.kv.Get(LegacyDataEntry)
	key, hasKey, errKey := l.kv.Get(LegacyKeyEntry)
	if err := errors.Join(errData, errKey); err != nil {
		l.log.WithError(err).Error("legacy read failed")
		return nil, false
	}
	if !hasData && !hasKey {
		return nil, false
	}

	ledger, err := l.decode(data, key)
	if err != nil {
		l.log.WithError(err).Warn("legacy sessions unreadable; discarding")
		l.discard()
		return nil, false
	}
	if len(ledger) == 0 {
		l.discard()
		return nil, false
	}

	l.metrics.LegacyRead(metrics.LegacyMigrated)
	l.log.WithField("sessions", len(ledger)).Info("legacy sessions found")
	return ledger, true
}

// Clear removes the legacy entries. Clearing an absent store is a no-op.
func (l *LegacyStore) Clear() error {
	return l.kv.Delete(LegacyDataEntry, LegacyKeyEntry)
}

func (l *LegacyStore) decode(data, key string) (domain.Ledger, error) {
	if data == "" || key == "" {
		return nil, domain.ErrCorruptData
	}
	wrapped, err := crypto.FromB64(key)
	if err != nil {
		return nil, domain.ErrCorruptData
	}
	km, err := l.keys.KeyPair()
	if err != nil {
		return nil, err
	}
	plain, err := crypto.OpenLegacy(data, wrapped, km)
	if err != nil {
		return nil, err
	}
	records, err := decodeLegacyRecords(plain)
	if err != nil {
		return nil, err
	}

	ledger := make(domain.Ledger, 0, len(records))
	for _, r := range records {
		if r.UserID == "" {
			continue
		}
		ledger = append(ledger, r.session())
	}
	return ledger.Normalize(l.max), nil
}

// decodeLegacyRecords accepts either an array of records or the single
// record written by the oldest clients.
func decodeLegacyRecords(plain []byte) ([]legacyRecord, error) {
	trimmed := bytes.TrimSpace(plain)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one legacyRecord
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, errors.Join(domain.ErrCorruptData, err)
		}
		return []legacyRecord{one}, nil
	}
	var many []legacyRecord
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, errors.Join(domain.ErrCorruptData, err)
	}
	return many, nil
}

func (l *LegacyStore) discard() {
	if err := l.Clear(); err != nil {
		l.log.WithError(err).Error("legacy clear failed")
		return
	}
	l.metrics.LegacyRead(metrics.LegacyDiscarded)
}

// Compile-time assertion that LegacyStore implements domain.LegacyStore.
var _ domain.LegacyStore = (*LegacyStore)(nil)
