// Package status provides a thread-safe tracker for monitor state.
// It is written by the poll loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/evohome-monitor/internal/logic"
)

// Config contains monitor configuration for display.
type Config struct {
	PollInterval time.Duration
	HTTPPort     string
	Broker       string
	DatabasePath string
}

// PollCounts tracks poll loop outcomes.
type PollCounts struct {
	Polls               int
	Errors              int
	ConsecutiveFailures int
}

// Snapshot is a point-in-time view of monitor state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	System          *logic.SystemSnapshot
	ActiveOverrides map[string]time.Time
	Counts          PollCounts
	LastPollAt      time.Time
	LastError       string
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Config          Config
}

// Uptime returns the duration since the monitor started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable monitor state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordPoll stores a successful poll result. Called on every poll cycle.
func (t *Tracker) RecordPoll(system logic.SystemSnapshot, active map[string]time.Time, at time.Time) {
	t.mu.Lock()
	t.snap.System = &system
	t.snap.ActiveOverrides = active
	t.snap.Counts.Polls++
	t.snap.Counts.ConsecutiveFailures = 0
	t.snap.LastPollAt = at
	t.snap.LastError = ""
	t.mu.Unlock()
}

// RecordPollError stores a failed poll. Returns the consecutive failure
// count so the caller can decide whether to escalate.
func (t *Tracker) RecordPollError(err error, at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Counts.Polls++
	t.snap.Counts.Errors++
	t.snap.Counts.ConsecutiveFailures++
	t.snap.LastPollAt = at
	t.snap.LastError = err.Error()
	return t.snap.Counts.ConsecutiveFailures
}

// SetMQTTConnected sets MQTT connection state.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the monitor state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
