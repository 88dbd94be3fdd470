package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/app"
	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/keys"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := app.LoadConfig(home)

	require.NoError(t, err)
	assert.Equal(t, app.DefaultConfig(home), cfg)
	assert.Equal(t, app.BackendFile, cfg.Backend)
	assert.Equal(t, keys.DefaultExpiryThreshold, cfg.ExpiryThreshold)
	assert.Equal(t, domain.MaxSessions, cfg.MaxSessions)
	assert.Equal(t, domain.Strategy(""), cfg.Strategy())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	doc := "backend: badger\nkey_strategy: x25519\nkey_validity: 720h\nmax_sessions: 4\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFileName), []byte(doc), 0o600))
	t.Setenv("CREDVAULT_MAX_SESSIONS", "6")
	t.Setenv("CREDVAULT_EXPIRY_THRESHOLD", "48h")

	cfg, err := app.LoadConfig(home)

	require.NoError(t, err)
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, app.BackendBadger, cfg.Backend)
	assert.Equal(t, crypto.StrategyX25519, cfg.Strategy())
	assert.Equal(t, 720*time.Hour, cfg.KeyValidity)
	assert.Equal(t, 48*time.Hour, cfg.ExpiryThreshold)
	assert.Equal(t, 6, cfg.MaxSessions)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_IgnoresBadEnvValues(t *testing.T) {
	t.Setenv("CREDVAULT_MAX_SESSIONS", "-3")
	t.Setenv("CREDVAULT_KEY_VALIDITY", "soon")

	cfg, err := app.LoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, domain.MaxSessions, cfg.MaxSessions)
	assert.Equal(t, keys.DefaultValidity, cfg.KeyValidity)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad yaml":         "backend: [",
		"unknown backend":  "backend: s3\n",
		"unknown strategy": "key_strategy: rot13\n",
		"zero sessions":    "max_sessions: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFileName), []byte(doc), 0o600))

			_, err := app.LoadConfig(home)
			assert.Error(t, err)
		})
	}
}

func TestValidate_MemoryNeedsNoHome(t *testing.T) {
	cfg := app.DefaultConfig("")
	cfg.Backend = app.BackendMemory
	assert.NoError(t, cfg.Validate())

	cfg.Backend = app.BackendFile
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidState)
}
