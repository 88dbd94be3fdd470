package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/metrics"
)

// Persisted entry names.
const (
	KeyPairEntry    = "key_pair"
	ValidUntilEntry = "key_pair_valid_until"
)

const (
	// Never is the persisted expiry for pairs without a validity window.
	Never int64 = -1

	// DefaultValidity is the lifetime of pairs from strategies that expire.
	DefaultValidity = 365 * 24 * time.Hour
	// DefaultExpiryThreshold is how early IsCloseToExpiration starts reporting.
	DefaultExpiryThreshold = 90 * 24 * time.Hour
)

// Options configures a Provider.
type Options struct {
	// Strategy forces a key strategy; empty means Detect(HostCapabilities()).
	Strategy domain.Strategy
	// Validity overrides DefaultValidity for strategies that expire.
	Validity time.Duration
	Now      func() time.Time
	Logger   *logrus.Logger
	Metrics  *metrics.Recorder
}

// record is the persisted form of a key pair.
type record struct {
	ID        domain.KeyID    `json:"id"`
	Strategy  domain.Strategy `json:"strategy"`
	Public    []byte          `json:"public"`
	Private   []byte          `json:"private"`
	CreatedAt time.Time       `json:"created_at"`
}

// Provider is the KeyProvider backed by a KeyValueStore.
//
// The pair is read once and cached; later KeyPair calls return the cached
// value until Rotate replaces it.
type Provider struct {
	store    domain.KeyValueStore
	scheme   crypto.Scheme
	validity time.Duration
	now      func() time.Time
	log      *logrus.Entry
	metrics  *metrics.Recorder

	mu     sync.Mutex
	cached *domain.KeyMaterial
}

// NewProvider returns a Provider persisting to store. The strategy is fixed
// for the Provider's lifetime.
func NewProvider(store domain.KeyValueStore, opts Options) (*Provider, error) {
	if store == nil {
		return nil, fmt.Errorf("keys: nil store: %w", domain.ErrInvalidState)
	}
	if opts.Strategy == "" {
		opts.Strategy = Detect(HostCapabilities())
	}
	scheme, err := crypto.SchemeFor(opts.Strategy)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	validity := time.Duration(0)
	if Expires(opts.Strategy) {
		validity = DefaultValidity
		if opts.Validity > 0 {
			validity = opts.Validity
		}
	}

	return &Provider{
		store:    store,
		scheme:   scheme,
		validity: validity,
		now:      opts.Now,
		log: opts.Logger.WithFields(logrus.Fields{
			"component": "keys",
			"strategy":  opts.Strategy,
		}),
		metrics: opts.Metrics,
	}, nil
}

// Expires reports whether pairs of strategy carry a validity window. The RSA
// fallback does not.
func Expires(strategy domain.Strategy) bool {
	return strategy != crypto.StrategyRSA
}

// Strategy returns the strategy used for newly generated pairs.
func (p *Provider) Strategy() domain.Strategy { return p.scheme.Strategy() }

// KeyPair returns the current pair, generating and persisting one when the
// store holds none or holds one that cannot be used.
func (p *Provider) KeyPair() (domain.KeyMaterial, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	km, found, err := p.load()
	if err == nil && found {
		p.cached = &km
		return km, nil
	}
	var readErr *storeReadError
	if errors.As(err, &readErr) {
		// Unreadable is not corrupt: keep the stored pair.
		p.log.WithError(readErr.err).Error("key pair read failed")
		return domain.KeyMaterial{}, fmt.Errorf("%w: %w", domain.ErrKeyGeneration, readErr)
	}

	reason := metrics.ReasonFirstUse
	if err != nil {
		reason = metrics.ReasonCorruptKey
		p.log.WithError(err).Warn("stored key pair unusable; regenerating")
	}
	return p.generate(reason)
}

// Rotate replaces the pair unconditionally.
func (p *Provider) Rotate() (domain.KeyMaterial, error) {
	return p.RotateFor(metrics.ReasonManual)
}

// RotateFor is Rotate with the reason recorded in metrics and logs.
func (p *Provider) RotateFor(reason string) (domain.KeyMaterial, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generate(reason)
}

// IsCloseToExpiration reports whether the pair expires within threshold or
// has already expired. Pairs that never expire, or that cannot be loaded,
// report false.
func (p *Provider) IsCloseToExpiration(threshold time.Duration) bool {
	km, err := p.KeyPair()
	if err != nil || !km.Expires() {
		return false
	}
	return !km.ValidUntil.After(p.now().Add(threshold))
}

// storeReadError marks a failure to read the store, as opposed to a stored
// record that does not decode.
type storeReadError struct{ err error }

func (e *storeReadError) Error() string { return "read key pair: " + e.err.Error() }

func (e *storeReadError) Unwrap() error { return e.err }

// load reads the persisted pair. found is false when nothing is stored; err
// is set when something is stored but unusable, or is a *storeReadError when
// the store could not be read.
func (p *Provider) load() (km domain.KeyMaterial, found bool, err error) {
	raw, ok, err := p.store.Get(KeyPairEntry)
	if err != nil {
		return km, false, &storeReadError{err: err}
	}
	if !ok || raw == "" {
		return km, false, nil
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return km, false, fmt.Errorf("decode key record: %w", err)
	}
	scheme, err := crypto.SchemeFor(rec.Strategy)
	if err != nil {
		return km, false, err
	}
	if err := scheme.Check(rec.Public, rec.Private); err != nil {
		return km, false, fmt.Errorf("key record self-check: %w", err)
	}

	validUntil, err := p.loadValidUntil()
	if err != nil {
		return km, false, err
	}

	return domain.KeyMaterial{
		ID:         rec.ID,
		Strategy:   rec.Strategy,
		Public:     rec.Public,
		Private:    rec.Private,
		ValidUntil: validUntil,
	}, true, nil
}

func (p *Provider) loadValidUntil() (time.Time, error) {
	raw, ok, err := p.store.Get(ValidUntilEntry)
	if err != nil {
		return time.Time{}, &storeReadError{err: err}
	}
	if !ok {
		return time.Time{}, fmt.Errorf("missing %s", ValidUntilEntry)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", ValidUntilEntry, err)
	}
	if ms == Never {
		return time.Time{}, nil
	}
	if ms < 0 {
		return time.Time{}, fmt.Errorf("invalid %s %d", ValidUntilEntry, ms)
	}
	return time.UnixMilli(ms), nil
}

// generate creates, persists and caches a new pair. Caller holds p.mu.
func (p *Provider) generate(reason string) (domain.KeyMaterial, error) {
	pub, priv, err := p.scheme.Generate()
	if err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}

	now := p.now()
	km := domain.KeyMaterial{
		ID:       domain.KeyID(uuid.NewString()),
		Strategy: p.scheme.Strategy(),
		Public:   pub,
		Private:  priv,
	}
	validUntil := Never
	if p.validity > 0 {
		km.ValidUntil = now.Add(p.validity).Truncate(time.Millisecond)
		validUntil = km.ValidUntil.UnixMilli()
	}

	raw, err := json.Marshal(record{
		ID:        km.ID,
		Strategy:  km.Strategy,
		Public:    pub,
		Private:   priv,
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	if err := p.store.SetMany(map[string]string{
		KeyPairEntry:    string(raw),
		ValidUntilEntry: strconv.FormatInt(validUntil, 10),
	}); err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("%w: persist: %v", domain.ErrKeyGeneration, err)
	}

	p.cached = &km
	p.metrics.KeyRotated(reason)
	p.log.WithFields(logrus.Fields{
		"key_id": km.ID,
		"reason": reason,
	}).Info("generated device key pair")
	return km, nil
}

// Compile-time assertion that Provider implements domain.KeyProvider.
var _ domain.KeyProvider = (*Provider)(nil)
