package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/keys"
)

// ConfigFileName is the optional config document under Home.
const ConfigFileName = "config.yaml"

// Storage backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// StrategyAuto selects the key strategy from host capabilities.
const StrategyAuto = "auto"

// Config holds runtime wiring options for building the vault.
type Config struct {
	Home            string        `yaml:"-"`                // vault directory, e.g. $HOME/.credvault
	Backend         string        `yaml:"backend"`          // file, badger or memory
	KeyStrategy     string        `yaml:"key_strategy"`     // auto or a strategy name
	KeyValidity     time.Duration `yaml:"key_validity"`     // lifetime of expiring key pairs
	ExpiryThreshold time.Duration `yaml:"expiry_threshold"` // rotate this close to expiry
	MaxSessions     int           `yaml:"max_sessions"`
	LogLevel        string        `yaml:"log_level"`
}

// DefaultConfig returns the defaults for a vault rooted at home.
func DefaultConfig(home string) Config {
	return Config{
		Home:            home,
		Backend:         BackendFile,
		KeyStrategy:     StrategyAuto,
		KeyValidity:     keys.DefaultValidity,
		ExpiryThreshold: keys.DefaultExpiryThreshold,
		MaxSessions:     domain.MaxSessions,
		LogLevel:        "info",
	}
}

// LoadConfig builds a Config for home: defaults, then home/config.yaml if
// present, then CREDVAULT_* environment variables.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)

	data, err := os.ReadFile(filepath.Join(home, ConfigFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.Home = home
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Backend = envString("CREDVAULT_BACKEND", c.Backend)
	c.KeyStrategy = envString("CREDVAULT_KEY_STRATEGY", c.KeyStrategy)
	c.KeyValidity = envDuration("CREDVAULT_KEY_VALIDITY", c.KeyValidity)
	c.ExpiryThreshold = envDuration("CREDVAULT_EXPIRY_THRESHOLD", c.ExpiryThreshold)
	c.MaxSessions = envInt("CREDVAULT_MAX_SESSIONS", c.MaxSessions)
	c.LogLevel = envString("CREDVAULT_LOG_LEVEL", c.LogLevel)
}

// Validate rejects values the wiring cannot act on.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendBadger:
		if c.Home == "" {
			return fmt.Errorf("%w: backend %q needs a home directory", domain.ErrInvalidState, c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidState, c.Backend)
	}
	if c.KeyStrategy != StrategyAuto {
		if _, err := crypto.SchemeFor(domain.Strategy(c.KeyStrategy)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
		}
	}
	if c.KeyValidity <= 0 || c.ExpiryThreshold <= 0 {
		return fmt.Errorf("%w: key validity and expiry threshold must be positive", domain.ErrInvalidState)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: max sessions must be positive", domain.ErrInvalidState)
	}
	return nil
}

// Strategy returns the configured strategy, or "" for auto-detection.
func (c Config) Strategy() domain.Strategy {
	if c.KeyStrategy == StrategyAuto {
		return ""
	}
	return domain.Strategy(c.KeyStrategy)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
