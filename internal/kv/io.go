package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// documentMode is the permission of the store document; it holds wrapped
// keys and private key material.
const documentMode os.FileMode = 0o600

// loadDocument reads the entry map at path. A missing file is an empty map.
func loadDocument(path string) (map[string]string, error) {
	entries := make(map[string]string)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if entries == nil {
		// The document held a JSON null.
		entries = make(map[string]string)
	}
	return entries, nil
}

// saveDocument replaces the document at path with entries. The new content
// is fsynced in a sibling temp file before the rename, so readers see either
// the old document or the new one.
func saveDocument(path string, entries map[string]string) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	_, err = f.Write(b)
	if err == nil {
		err = f.Chmod(documentMode)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
