// Package store holds the in-memory authoritative dataset of a fair:
// projects, evaluators, panels, results and per-evaluator lifecycle state.
package store

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodeGenerator overrides how evaluator access codes are generated.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

// Store is safe for concurrent use. Every mutation runs inside Update against
// a private copy that replaces the live state only when the callback succeeds.
type Store struct {
	mu       sync.RWMutex
	state    Snapshot
	lastSync time.Time
	now      func() time.Time
	newCode  func() string
}

// New creates a store seeded with a copy of seed.
func New(seed Snapshot, opts ...Option) *Store {
	s := &Store{
		state:   seed.Clone(),
		now:     time.Now,
		newCode: randomAccessCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomAccessCode() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// Update runs fn in a write transaction. State changes are discarded when fn
// returns an error.
func (s *Store) Update(fn func(tx *Tx) error) error {
	if s == nil {
		return fmt.Errorf("store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Tx{state: s.state.Clone(), now: s.now(), newCode: s.newCode}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View runs fn against a consistent copy of the state.
func (s *Store) View(fn func(tx *Tx) error) error {
	if s == nil {
		return fmt.Errorf("store is not configured")
	}
	s.mu.RLock()
	tx := &Tx{state: s.state.Clone(), now: s.now(), newCode: s.newCode}
	s.mu.RUnlock()
	return fn(tx)
}

// Snapshot returns a deep copy of the dataset.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace swaps the whole dataset for snap.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = snap.Clone()
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// LastSync returns when the dataset last matched the remote store.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// MarkSynced records a successful exchange with the remote store.
func (s *Store) MarkSynced(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = at
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// UpdateSettings applies patch and returns the resulting settings.
func (s *Store) UpdateSettings(patch SettingsPatch) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings = patch.Apply(s.state.Settings)
	return s.state.Settings
}

// ResetBranding restores default branding.
func (s *Store) ResetBranding() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings = s.state.Settings.WithDefaultBranding()
	return s.state.Settings
}

// ClearScores removes every result and all evaluator lifecycle state.
func (s *Store) ClearScores() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Results = []Result{}
	s.state.EvaluatorState = map[string]EvaluatorState{}
}

// ResetAll removes every entity. Settings are kept.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Snapshot{Settings: s.state.Settings}.Clone()
}
