// Package notify decides whether detected events become outbound alerts and
// delivers them. The policy (cooldown, quiet hours) is pure state + injected
// time; transports implement Sender.
package notify

import (
	"sync"
	"time"
)

// PolicyConfig holds the alert gating configuration.
type PolicyConfig struct {
	// Cooldown suppresses repeat notifications for the same zone.
	Cooldown time.Duration

	// Quiet hours suppress non-forced notifications. When Start > End the
	// window wraps midnight (23→7 means hour ≥ 23 or hour < 7).
	QuietEnabled bool
	QuietStart   int // 0–23
	QuietEnd     int // 0–23
}

// Policy tracks per-zone cooldowns and the quiet-hours gate. Safe for
// concurrent use; the web surface reads while the poll loop writes.
type Policy struct {
	cfg PolicyConfig

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewPolicy creates a Policy with the given configuration.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{
		cfg:      cfg,
		lastSent: make(map[string]time.Time),
	}
}

// InQuietHours reports whether now falls inside the configured quiet window.
func (p *Policy) InQuietHours(now time.Time) bool {
	if !p.cfg.QuietEnabled {
		return false
	}
	hour := now.Hour()
	start, end := p.cfg.QuietStart, p.cfg.QuietEnd
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// InCooldown reports whether the zone had a confirmed send within the
// cooldown window ending at now.
func (p *Policy) InCooldown(zoneID string, now time.Time) bool {
	p.mu.Lock()
	last, ok := p.lastSent[zoneID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	return now.Before(last.Add(p.cfg.Cooldown))
}

// ShouldNotify applies both gates for a routine zone alert.
func (p *Policy) ShouldNotify(zoneID string, now time.Time) bool {
	return !p.InQuietHours(now) && !p.InCooldown(zoneID, now)
}

// RecordSent marks a confirmed send for the zone. Only call after the
// transport acknowledged delivery; failed sends must not consume cooldown.
func (p *Policy) RecordSent(zoneID string, now time.Time) {
	p.mu.Lock()
	p.lastSent[zoneID] = now
	p.mu.Unlock()
}
