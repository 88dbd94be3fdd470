package kv

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"credvault/internal/domain"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	Path       string // database directory; ignored when InMemory is set
	InMemory   bool
	SyncWrites bool
	Logger     *logrus.Logger
}

// BadgerStore keeps entries in a badger database. Multi-key writes share one
// transaction.
type BadgerStore struct {
	config BadgerConfig
	db     *badger.DB
	claim  string
}

// OpenBadgerStore opens (creating if needed) the database described by config.
func OpenBadgerStore(config BadgerConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	var opts badger.Options
	var abs string
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Path == "" {
			return nil, errors.New("no path provided in configuration")
		}
		if err := os.MkdirAll(config.Path, 0o700); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		var err error
		if abs, err = claim(config.Path); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts.Logger = nil
	opts.SyncWrites = config.SyncWrites
	opts.ValueLogFileSize = 1 << 24 // entries are small; keep value logs at 16MB

	db, err := badger.Open(opts)
	if err != nil {
		if abs != "" {
			release(abs)
		}
		return nil, fmt.Errorf("open badger: %w", err)
	}

	config.Logger.WithFields(logrus.Fields{
		"component": "kv.badger",
		"path":      config.Path,
		"in_memory": config.InMemory,
	}).Debug("badger store opened")

	return &BadgerStore{config: config, db: db, claim: abs}, nil
}

func (s *BadgerStore) Get(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %s: %w", key, err)
	}
	return string(value), true, nil
}

func (s *BadgerStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

func (s *BadgerStore) SetMany(entries map[string]string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for k, v := range entries {
			if err := txn.Set([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

func (s *BadgerStore) Delete(keys ...string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Close flushes and closes the database and releases the path claim.
func (s *BadgerStore) Close() error {
	err := s.db.Close()
	if s.claim != "" {
		release(s.claim)
		s.claim = ""
	}
	return err
}

// Compile-time assertion that BadgerStore implements domain.KeyValueStore.
var _ domain.KeyValueStore = (*BadgerStore)(nil)
