package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"credvault/internal/domain"
	"credvault/internal/keys"
	"credvault/internal/kv"
	"credvault/internal/metrics"
	sessionsvc "credvault/internal/services/session"
	"credvault/internal/store"
)

// BadgerDirName is the badger database directory under Home.
const BadgerDirName = "badger"

// Wire bundles the stores and services for the CLI.
type Wire struct {
	Config     Config
	Logger     *logrus.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Recorder
	KV         domain.KeyValueStore
	Keys       *keys.Provider
	Ledger     *store.SessionStore
	Legacy     *store.LegacyStore
	Agreements *store.AgreementStore
	Sessions   *sessionsvc.Service
}

// NewWire constructs the dependency graph from cfg. logger may be nil.
// The caller must Close the Wire to release the backend.
func NewWire(cfg Config, logger *logrus.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	recorder, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := keys.NewProvider(backend, keys.Options{
		Strategy: cfg.Strategy(),
		Validity: cfg.KeyValidity,
		Logger:   logger,
		Metrics:  recorder,
	})
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	ledger := store.NewSessionStore(backend, provider, store.SessionStoreConfig{
		ExpiryThreshold: cfg.ExpiryThreshold,
		MaxSessions:     cfg.MaxSessions,
		Logger:          logger,
		Metrics:         recorder,
	})
	legacy := store.NewLegacyStore(backend, provider, logger, recorder)

	return &Wire{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Metrics:    recorder,
		KV:         backend,
		Keys:       provider,
		Ledger:     ledger,
		Legacy:     legacy,
		Agreements: store.NewAgreementStore(backend, store.WithAgreementLogger(logger)),
		Sessions: sessionsvc.New(ledger, legacy, sessionsvc.Options{
			Logger:      logger,
			MaxSessions: cfg.MaxSessions,
		}),
	}, nil
}

// Close releases the backend.
func (w *Wire) Close() error {
	return w.KV.Close()
}

func openBackend(cfg Config, logger *logrus.Logger) (domain.KeyValueStore, error) {
	switch cfg.Backend {
	case BackendFile:
		return kv.OpenFileStore(cfg.Home, logger)
	case BackendBadger:
		return kv.OpenBadgerStore(kv.BadgerConfig{
			Path:       filepath.Join(cfg.Home, BadgerDirName),
			SyncWrites: true,
			Logger:     logger,
		})
	case BackendMemory:
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidState, cfg.Backend)
	}
}
