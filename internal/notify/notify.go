package notify

import (
	"context"
	"time"

	"github.com/sweeney/evohome-monitor/internal/logging"
	"github.com/sweeney/evohome-monitor/internal/logic"
	"github.com/sweeney/evohome-monitor/internal/metrics"
)

// Message is an outbound alert.
type Message struct {
	Text string
	// Silent delivers without a notification sound (low-priority).
	Silent bool
}

// Sender delivers a message to an external endpoint.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ManagerConfig controls which overrides alert at all.
type ManagerConfig struct {
	// AlertOnAllOverrides alerts on every override; when false, only
	// overrides to a suspicious setpoint alert.
	AlertOnAllOverrides bool

	// SuspiciousTemps is the suspicious-value set used when
	// AlertOnAllOverrides is false.
	SuspiciousTemps []float64

	// DashboardURL, when set, is appended to alert messages.
	DashboardURL string
}

// Manager routes detected events through the policy to a sender. Transport
// failures are logged and swallowed: they never abort a poll cycle, and
// cooldown state only advances on confirmed sends.
type Manager struct {
	cfg    ManagerConfig
	policy *Policy
	sender Sender
	now    func() time.Time
}

// NewManager creates a Manager. now is injectable for tests; pass time.Now
// in production.
func NewManager(cfg ManagerConfig, policy *Policy, sender Sender, now func() time.Time) *Manager {
	return &Manager{cfg: cfg, policy: policy, sender: sender, now: now}
}

// NotifyOverride sends an alert for a new override event, subject to the
// suspicious-only toggle, quiet hours, and per-zone cooldown. Returns whether
// a message was delivered.
func (m *Manager) NotifyOverride(ctx context.Context, ev logic.OverrideEvent) bool {
	if m.sender == nil {
		return false
	}
	if !m.cfg.AlertOnAllOverrides && !inSet(ev.NewTarget, m.cfg.SuspiciousTemps) {
		logging.Debug("skipping alert, target not in suspicious set",
			"zone", ev.ZoneName, "target", ev.NewTarget)
		return false
	}

	now := m.now()
	if m.policy.InQuietHours(now) {
		logging.Info("in quiet hours, suppressing override alert", "zone", ev.ZoneName)
		return false
	}
	if m.policy.InCooldown(ev.ZoneID, now) {
		logging.Info("zone in cooldown, suppressing override alert", "zone", ev.ZoneName)
		return false
	}

	return m.deliver(ctx, ev.ZoneID, Message{Text: FormatOverrideAlert(ev, m.cfg.DashboardURL)})
}

// NotifyCleared sends a low-priority alert that an override was cleared.
// Clears bypass the cooldown gate (the clear itself is always attempted) but
// still respect quiet hours.
func (m *Manager) NotifyCleared(ctx context.Context, ev logic.ClearedOverrideEvent) bool {
	if m.sender == nil {
		return false
	}
	if m.policy.InQuietHours(m.now()) {
		logging.Info("in quiet hours, suppressing clear alert", "zone", ev.ZoneName)
		return false
	}
	return m.deliver(ctx, ev.ZoneID, Message{Text: FormatClearedAlert(ev, m.cfg.DashboardURL), Silent: true})
}

// NotifyStartup announces monitor startup, bypassing all gates.
func (m *Manager) NotifyStartup(ctx context.Context, pollInterval time.Duration) {
	m.sendSystem(ctx, FormatStartup(m.now(), pollInterval), false)
}

// NotifyShutdown announces monitor shutdown, bypassing all gates.
func (m *Manager) NotifyShutdown(ctx context.Context) {
	m.sendSystem(ctx, FormatShutdown(m.now()), false)
}

// NotifyError escalates a monitoring failure, bypassing all gates but
// delivered silently.
func (m *Manager) NotifyError(ctx context.Context, errText string) {
	m.sendSystem(ctx, FormatError(m.now(), errText), true)
}

func (m *Manager) sendSystem(ctx context.Context, text string, silent bool) {
	if m.sender == nil {
		return
	}
	if err := m.sender.Send(ctx, Message{Text: text, Silent: silent}); err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		logging.Error("failed to send system notification", "error", err)
		return
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
}

// deliver sends a zone-keyed message and records cooldown only on success.
func (m *Manager) deliver(ctx context.Context, zoneID string, msg Message) bool {
	if err := m.sender.Send(ctx, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		logging.Error("failed to send notification", "zone", zoneID, "error", err)
		return false
	}
	m.policy.RecordSent(zoneID, m.now())
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	logging.Info("notification sent", "zone", zoneID)
	return true
}

func inSet(v float64, set []float64) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
