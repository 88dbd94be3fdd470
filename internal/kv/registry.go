package kv

import (
	"fmt"
	"path/filepath"
	"sync"

	"credvault/internal/domain"
)

// Paths currently owned by an open handle in this process.
var (
	openMu    sync.Mutex
	openPaths = map[string]struct{}{}
)

func claim(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	openMu.Lock()
	defer openMu.Unlock()
	if _, busy := openPaths[abs]; busy {
		return "", fmt.Errorf("%s: %w", abs, domain.ErrStoreInUse)
	}
	openPaths[abs] = struct{}{}
	return abs, nil
}

func release(abs string) {
	openMu.Lock()
	delete(openPaths, abs)
	openMu.Unlock()
}
