package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/keys"
	"credvault/internal/metrics"
)

// Persisted entry names.
const (
	SessionDataEntry = "session_data"
	SessionKeyEntry  = "session_aes_key"
)

var errEmptyLedger = errors.New("empty ledger")

// SessionStoreConfig configures a SessionStore.
type SessionStoreConfig struct {
	// ExpiryThreshold is how close to expiry a key may get before a load
	// rotates it. Defaults to keys.DefaultExpiryThreshold.
	ExpiryThreshold time.Duration
	// MaxSessions caps the ledger. Defaults to domain.MaxSessions.
	MaxSessions int
	Logger      *logrus.Logger
	Metrics     *metrics.Recorder
}

// SessionStore keeps the ledger as an EncryptedBlob split over two entries.
type SessionStore struct {
	kv        domain.KeyValueStore
	keys      domain.KeyProvider
	threshold time.Duration
	max       int
	log       *logrus.Entry
	metrics   *metrics.Recorder
	mu        sync.Mutex
}

// NewSessionStore returns a SessionStore over kv, encrypting with pairs
// from provider.
func NewSessionStore(kv domain.KeyValueStore, provider domain.KeyProvider, cfg SessionStoreConfig) *SessionStore {
	if cfg.ExpiryThreshold <= 0 {
		cfg.ExpiryThreshold = keys.DefaultExpiryThreshold
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = domain.MaxSessions
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &SessionStore{
		kv:        kv,
		keys:      provider,
		threshold: cfg.ExpiryThreshold,
		max:       cfg.MaxSessions,
		log:       cfg.Logger.WithField("component", "store.session"),
		metrics:   cfg.Metrics,
	}
}

// Load returns the stored ledger, or an empty one when nothing usable is
// stored. Unreadable state is wiped; a key that fails to open the ledger is
// rotated. When the key is close to expiry, it is rotated and the ledger is
// rewritten under the new key before Load returns.
func (s *SessionStore) Load() domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.readBlob()
	if !ok {
		return nil
	}

	km, err := s.keys.KeyPair()
	if err != nil {
		// No usable key and none could be made; leave the bytes for a later run.
		s.log.WithError(err).Error("no key pair available; treating ledger as empty")
		return nil
	}

	plaintext, err := crypto.UnwrapDecrypt(blob, km)
	if err != nil {
		s.log.WithField("key_id", km.ID).Warn("ledger does not open under current key; rotating")
		s.rotate(metrics.ReasonInvalidKey)
		s.wipe(metrics.WipeInvalidKey)
		return nil
	}

	ledger, err := decodeLedger(plaintext, s.max)
	switch {
	case errors.Is(err, errEmptyLedger):
		s.wipe(metrics.WipeEmptyLedger)
		return nil
	case err != nil:
		s.log.WithError(err).Warn("ledger does not parse; wiping")
		s.wipe(metrics.WipeCorruptData)
		return nil
	}

	if s.keys.IsCloseToExpiration(s.threshold) {
		s.log.WithField("key_id", km.ID).Info("key pair close to expiry; rotating and re-encrypting")
		if s.rotate(metrics.ReasonExpiry) {
			if err := s.save(ledger); err != nil {
				s.log.WithError(err).Error("re-encrypt after rotation failed")
			}
		}
	}

	s.log.WithField("sessions", len(ledger)).Debug("ledger loaded")
	return ledger
}

// Save normalizes and writes the ledger under a fresh symmetric key. An
// empty ledger clears storage. If the ledger cannot be encrypted the write
// is skipped and storage is left as it was.
func (s *SessionStore) Save(ledger domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ledger)
}

// Clear removes the stored ledger.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(SessionDataEntry, SessionKeyEntry); err != nil {
		return err
	}
	s.metrics.StoreWiped(metrics.WipeRequested)
	s.metrics.SessionsStored(0)
	return nil
}

func (s *SessionStore) save(ledger domain.Ledger) error {
	persistable := make(domain.Ledger, 0, len(ledger))
	for _, sess := range ledger {
		if !sess.Transient && sess.UserID != "" {
			persistable = append(persistable, sess)
		}
	}
	persistable = persistable.Normalize(s.max)
	if len(persistable) == 0 {
		if err := s.kv.Delete(SessionDataEntry, SessionKeyEntry); err != nil {
			return err
		}
		s.metrics.SessionsStored(0)
		return nil
	}

	plaintext, err := json.Marshal(persistable)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if len(plaintext) == 0 {
		s.log.Warn("ledger encoded to nothing; write skipped")
		return nil
	}

	km, err := s.keys.KeyPair()
	if err != nil {
		s.log.WithError(err).Error("no key pair; write skipped")
		return err
	}
	blob, err := crypto.WrapEncrypt(plaintext, km)
	if err != nil {
		s.log.WithError(err).Error("ledger encryption failed; write skipped")
		return fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}

	if err := s.kv.SetMany(map[string]string{
		SessionDataEntry: crypto.B64(blob.Ciphertext),
		SessionKeyEntry:  crypto.B64(blob.WrappedKey),
	}); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	s.metrics.SessionsStored(len(persistable))
	return nil
}

// readBlob returns the stored blob. ok is false when storage is empty; a
// half-written or undecodable pair is wiped and reported as empty.
func (s *SessionStore) readBlob() (domain.EncryptedBlob, bool) {
	data, hasData, errData := s.kv.Get(SessionDataEntry)
	key, hasKey, errKey := s.kv.Get(SessionKeyEntry)
	if err := errors.Join(errData, errKey); err != nil {
		s.log.WithError(err).Error("ledger read failed")
		return domain.EncryptedBlob{}, false
	}
	hasData = hasData && data != ""
	hasKey = hasKey && key != ""
	if !hasData && !hasKey {
		return domain.EncryptedBlob{}, false
	}
	if !hasData || !hasKey {
		s.log.Warn("ledger half present; wiping")
		s.wipe(metrics.WipeCorruptData)
		return domain.EncryptedBlob{}, false
	}

	ct, errCT := crypto.FromB64(data)
	wk, errWK := crypto.FromB64(key)
	if err := errors.Join(errCT, errWK); err != nil {
		s.log.WithError(err).Warn("ledger entries are not base64; wiping")
		s.wipe(metrics.WipeCorruptData)
		return domain.EncryptedBlob{}, false
	}
	blob := domain.EncryptedBlob{Ciphertext: ct, WrappedKey: wk}
	if blob.Empty() {
		s.wipe(metrics.WipeCorruptData)
		return domain.EncryptedBlob{}, false
	}
	return blob, true
}

type reasonRotator interface {
	RotateFor(reason string) (domain.KeyMaterial, error)
}

func (s *SessionStore) rotate(reason string) bool {
	var err error
	if r, ok := s.keys.(reasonRotator); ok {
		_, err = r.RotateFor(reason)
	} else {
		_, err = s.keys.Rotate()
	}
	if err != nil {
		s.log.WithError(err).WithField("reason", reason).Error("key rotation failed")
		return false
	}
	return true
}

func (s *SessionStore) wipe(reason string) {
	if err := s.kv.Delete(SessionDataEntry, SessionKeyEntry); err != nil {
		s.log.WithError(err).WithField("reason", reason).Error("ledger wipe failed")
		return
	}
	s.metrics.StoreWiped(reason)
	s.metrics.SessionsStored(0)
}

func decodeLedger(plaintext []byte, limit int) (domain.Ledger, error) {
	trimmed := bytes.TrimSpace(plaintext)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		return nil, errEmptyLedger
	}
	var ledger domain.Ledger
	if err := json.Unmarshal(trimmed, &ledger); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	valid := ledger[:0]
	for _, sess := range ledger {
		if sess.UserID != "" {
			valid = append(valid, sess)
		}
	}
	if len(valid) == 0 {
		return nil, errEmptyLedger
	}
	return valid.Normalize(limit), nil
}

// Compile-time assertion that SessionStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*SessionStore)(nil)
