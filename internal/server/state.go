package server

import (
	"sync"
	"time"

	"github.com/quantsight/gexflow/internal/engine"
)

// State holds the latest completed poll output for HTTP readers. The poll
// loop is the only writer; handlers take read locks.
type State struct {
	mu       sync.RWMutex
	snapshot *engine.GammaSnapshot
	alerts   []engine.Alert
	polls    int
	started  time.Time
}

func NewState() *State {
	return &State{started: time.Now()}
}

// Set replaces the current snapshot and appends this poll's alerts to the
// session alert log.
func (s *State) Set(snap *engine.GammaSnapshot, alerts []engine.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.alerts = append(s.alerts, alerts...)
	s.polls++
}

// ResetAlerts clears the session alert log (called at session rollover).
func (s *State) ResetAlerts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = nil
}

// Snapshot returns the latest snapshot, or nil before the first poll.
func (s *State) Snapshot() *engine.GammaSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Alerts returns a copy of the session alert log.
func (s *State) Alerts() []engine.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Stats reports poll count and process uptime.
func (s *State) Stats() (polls int, uptime time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polls, time.Since(s.started)
}
