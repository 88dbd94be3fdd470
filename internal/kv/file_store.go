package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"credvault/internal/domain"
)

// DefaultFileName is the document FileStore keeps under its directory.
const DefaultFileName = "vault.json"

// FileStore keeps every entry in a single JSON document. Reads are served
// from memory; each write rewrites the document via temp file and rename.
type FileStore struct {
	path    string
	log     *logrus.Logger
	mu      sync.Mutex
	entries map[string]string
	closed  bool
}

// OpenFileStore claims dir/DefaultFileName and loads it.
func OpenFileStore(dir string, logger *logrus.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	path, err := claim(filepath.Join(dir, DefaultFileName))
	if err != nil {
		return nil, err
	}

	entries, err := loadDocument(path)
	if err != nil {
		// An unreadable document is treated like an empty one; the stores on
		// top recover from missing entries.
		logger.WithFields(logrus.Fields{
			"component": "kv.file",
			"path":      path,
		}).WithError(err).Warn("discarding unreadable store document")
		entries = make(map[string]string)
	}

	return &FileStore{path: path, log: logger, entries: entries}, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, domain.ErrInvalidState
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set writes a single entry.
func (s *FileStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany writes all entries in one document replacement.
func (s *FileStore) SetMany(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrInvalidState
	}
	next := s.copyEntries()
	for k, v := range entries {
		next[k] = v
	}
	return s.commit(next)
}

// Delete removes keys; missing keys are ignored.
func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrInvalidState
	}
	next := s.copyEntries()
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.commit(next)
}

// Close releases the path claim.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	release(s.path)
	return nil
}

func (s *FileStore) copyEntries() map[string]string {
	next := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		next[k] = v
	}
	return next
}

// commit persists next and only then swaps it in, so a failed write leaves
// the in-memory view matching disk.
func (s *FileStore) commit(next map[string]string) error {
	if err := saveDocument(s.path, next); err != nil {
		return fmt.Errorf("write store document: %w", err)
	}
	s.entries = next
	return nil
}

// Compile-time assertion that FileStore implements domain.KeyValueStore.
var _ domain.KeyValueStore = (*FileStore)(nil)
