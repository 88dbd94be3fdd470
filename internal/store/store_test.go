package store_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"credvault/internal/crypto"
	"credvault/internal/domain"
	"credvault/internal/keys"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0).UTC()} }

func newProvider(t *testing.T, kv domain.KeyValueStore, c *clock) *keys.Provider {
	t.Helper()
	p, err := keys.NewProvider(kv, keys.Options{
		Strategy: crypto.StrategyX25519,
		Now:      c.Now,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	return p
}

func session(user string, lastActive time.Time) domain.Session {
	return domain.Session{
		UserID:     domain.UserID(user),
		LastActive: lastActive.UTC(),
		Token: domain.UserToken{
			AccessToken:  "access-" + user,
			RefreshToken: "refresh-" + user,
		},
	}
}
