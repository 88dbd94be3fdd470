package kv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/domain"
	"credvault/internal/kv"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// exercise runs the shared contract against any backend.
func exercise(t *testing.T, s domain.KeyValueStore) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.SetMany(map[string]string{"b": "2", "c": "3"}))

	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		got, ok, err := s.Get(k)
		require.NoError(t, err)
		require.True(t, ok, k)
		assert.Equal(t, want, got)
	}

	require.NoError(t, s.Delete("a", "b", "never-set"))
	_, ok, err = s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
	got, ok, err := s.Get("c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", got)
}

func TestMemoryStore_Contract(t *testing.T) {
	exercise(t, kv.NewMemoryStore())
}

func TestFileStore_Contract(t *testing.T) {
	s, err := kv.OpenFileStore(t.TempDir(), quietLogger())
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}

func TestBadgerStore_Contract(t *testing.T) {
	s, err := kv.OpenBadgerStore(kv.BadgerConfig{Path: t.TempDir(), Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := kv.OpenBadgerStore(kv.BadgerConfig{InMemory: true, Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}

func TestFileStore_PersistsAcrossHandles(t *testing.T) {
	dir := t.TempDir()

	s, err := kv.OpenFileStore(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.SetMany(map[string]string{"session_data": "x", "session_aes_key": "y"}))
	require.NoError(t, s.Close())

	info, err := os.Stat(filepath.Join(dir, kv.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s, err = kv.OpenFileStore(dir, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get("session_aes_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", got)
}

func TestFileStore_SingleHandlePerPath(t *testing.T) {
	dir := t.TempDir()

	first, err := kv.OpenFileStore(dir, quietLogger())
	require.NoError(t, err)

	_, err = kv.OpenFileStore(dir, quietLogger())
	require.ErrorIs(t, err, domain.ErrStoreInUse)

	require.NoError(t, first.Close())
	second, err := kv.OpenFileStore(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestBadgerStore_SingleHandlePerPath(t *testing.T) {
	dir := t.TempDir()

	first, err := kv.OpenBadgerStore(kv.BadgerConfig{Path: dir, Logger: quietLogger()})
	require.NoError(t, err)
	defer first.Close()

	_, err = kv.OpenBadgerStore(kv.BadgerConfig{Path: dir, Logger: quietLogger()})
	require.ErrorIs(t, err, domain.ErrStoreInUse)
}

func TestFileStore_UnreadableDocumentStartsEmpty(t *testing.T) {
	for name, doc := range map[string]string{
		"malformed": "{not json",
		"null":      "null",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, kv.DefaultFileName), []byte(doc), 0o600))

			s, err := kv.OpenFileStore(dir, quietLogger())
			require.NoError(t, err)
			defer s.Close()

			_, ok, err := s.Get("session_data")
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, s.Set("k", "v"))

			files, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, files, 1)
			assert.Equal(t, kv.DefaultFileName, files[0].Name())
		})
	}
}

func TestFileStore_ClosedHandleRejectsCalls(t *testing.T) {
	s, err := kv.OpenFileStore(t.TempDir(), quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get("k")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.ErrorIs(t, s.Set("k", "v"), domain.ErrInvalidState)
}
