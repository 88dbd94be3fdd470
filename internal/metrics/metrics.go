// Package metrics counts the vault's recovery paths: key rotations, store
// wipes and legacy migrations.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "credvault"

// Rotation reasons.
const (
	ReasonManual     = "manual"
	ReasonExpiry     = "expiry"
	ReasonInvalidKey = "invalid_key"
	ReasonCorruptKey = "corrupt_key"
	ReasonFirstUse   = "first_use"
)

// Wipe reasons.
const (
	WipeCorruptData = "corrupt_data"
	WipeEmptyLedger = "empty_ledger"
	WipeInvalidKey  = "invalid_key"
	WipeRequested   = "requested"
)

// Legacy migration outcomes.
const (
	LegacyMigrated  = "migrated"
	LegacyDiscarded = "discarded"
)

// Recorder owns the vault's collectors.
type Recorder struct {
	rotations *prometheus.CounterVec
	wipes     *prometheus.CounterVec
	legacy    *prometheus.CounterVec
	sessions  prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_rotations_total",
			Help:      "Device key pair generations, by reason.",
		}, []string{"reason"}),
		wipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_wipes_total",
			Help:      "Session store wipes, by reason.",
		}, []string{"reason"}),
		legacy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_migrations_total",
			Help:      "Legacy store reads that found data, by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions in the ledger after the last write.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.rotations, r.wipes, r.legacy, r.sessions} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// KeyRotated counts a key pair generation.
func (r *Recorder) KeyRotated(reason string) {
	if r == nil {
		return
	}
	r.rotations.WithLabelValues(reason).Inc()
}

// StoreWiped counts a session store wipe.
func (r *Recorder) StoreWiped(reason string) {
	if r == nil {
		return
	}
	r.wipes.WithLabelValues(reason).Inc()
}

// LegacyRead counts a legacy store read that found data.
func (r *Recorder) LegacyRead(outcome string) {
	if r == nil {
		return
	}
	r.legacy.WithLabelValues(outcome).Inc()
}

// SessionsStored records the ledger size after a write.
func (r *Recorder) SessionsStored(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
