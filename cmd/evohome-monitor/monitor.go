package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/evohome-monitor/internal/config"
	"github.com/sweeney/evohome-monitor/internal/evohome"
	"github.com/sweeney/evohome-monitor/internal/logging"
	"github.com/sweeney/evohome-monitor/internal/logic"
	"github.com/sweeney/evohome-monitor/internal/metrics"
	"github.com/sweeney/evohome-monitor/internal/mqtt"
	"github.com/sweeney/evohome-monitor/internal/notify"
	"github.com/sweeney/evohome-monitor/internal/status"
	"github.com/sweeney/evohome-monitor/internal/store"
)

const (
	// escalationThreshold is the consecutive poll failure count that
	// triggers an error notification. Exactly once per failure streak.
	escalationThreshold = 3

	scheduleRefreshInterval = 6 * time.Hour
	cleanupInterval         = 24 * time.Hour
)

// monitor bundles the poll cycle dependencies. The MQTT publisher and the
// forensic store may be nil; those steps are then skipped.
type monitor struct {
	cfg        config.Config
	source     evohome.Source
	detector   *logic.Detector
	store      *store.Store
	notifier   *notify.Manager
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time

	lastScheduleRefresh time.Time
	lastCleanup         time.Time
}

// pollOnce runs one poll cycle: fetch, persist, detect, publish, notify.
// Failures are absorbed; the loop always continues.
func (m *monitor) pollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout())
	defer cancel()

	snap, err := m.source.FetchSnapshot(ctx)
	if err != nil {
		metrics.PollsTotal.Inc()
		metrics.PollErrorsTotal.Inc()
		failures := m.tracker.RecordPollError(err, m.now())
		metrics.ConsecutiveFailures.Set(float64(failures))
		logging.Error("poll failed", "error", err, "consecutive", failures)

		if failures == escalationThreshold {
			m.notifier.NotifyError(ctx, fmt.Sprintf("Multiple poll failures: %v", err))
			if m.publisher != nil {
				m.publishSystem("POLL_FAILURE", err.Error())
			}
		}
		return
	}

	metrics.PollsTotal.Inc()
	metrics.ConsecutiveFailures.Set(0)

	if m.store != nil {
		if err := m.store.AppendSnapshot(snap); err != nil {
			metrics.StorageErrors.Inc()
			logging.Error("failed to persist snapshot", "error", err)
		}
		for _, zone := range snap.Zones {
			if err := m.store.AppendZoneState(zone); err != nil {
				metrics.StorageErrors.Inc()
				logging.Error("failed to persist zone state", "zone", zone.Name, "error", err)
			}
		}
	}

	for _, zone := range snap.Zones {
		metrics.ZoneTargetTemp.WithLabelValues(zone.Name).Set(zone.TargetTemp)
		if zone.CurrentTemp != nil {
			metrics.ZoneCurrentTemp.WithLabelValues(zone.Name).Set(*zone.CurrentTemp)
		}
	}

	overrides, cleared := m.detector.Compare(snap)
	m.tracker.RecordPoll(snap, m.detector.ActiveOverrides(), m.now())

	for _, ev := range overrides {
		logging.Warn("override detected",
			"zone", ev.ZoneName, "target", ev.NewTarget,
			"type", ev.Classification.Type, "suspicious", ev.IsSuspicious)
		metrics.OverridesDetected.WithLabelValues(string(ev.Classification.Type)).Inc()

		if m.store != nil {
			if err := m.store.AppendOverrideEvent(ev); err != nil {
				metrics.StorageErrors.Inc()
				logging.Error("failed to persist override event", "error", err)
			}
		}
		if m.publisher != nil {
			if err := m.publisher.PublishOverride(ev); err != nil {
				logging.Error("mqtt publish error", "error", err)
			}
		}
		m.notifier.NotifyOverride(ctx, ev)
	}

	for _, ev := range cleared {
		logging.Info("override cleared", "zone", ev.ZoneName)
		metrics.OverridesCleared.Inc()

		if m.store != nil {
			if err := m.store.AppendCleared(ev); err != nil {
				metrics.StorageErrors.Inc()
				logging.Error("failed to persist cleared event", "error", err)
			}
		}
		if m.publisher != nil {
			if err := m.publisher.PublishCleared(ev); err != nil {
				logging.Error("mqtt publish error", "error", err)
			}
		}
		m.notifier.NotifyCleared(ctx, ev)
	}

	if m.mqttStatus != nil {
		m.tracker.SetMQTTConnected(m.mqttStatus.IsConnected())
	}

	m.runPeriodic(ctx, snap)
}

// runPeriodic handles schedule refresh and retention cleanup. Schedules are
// fetched after the first successful poll and then every six hours; cleanup
// runs daily.
func (m *monitor) runPeriodic(ctx context.Context, snap logic.SystemSnapshot) {
	now := m.now()

	if m.lastScheduleRefresh.IsZero() || now.Sub(m.lastScheduleRefresh) > scheduleRefreshInterval {
		m.fetchSchedules(ctx, snap)
		m.lastScheduleRefresh = now
	}

	if m.store != nil {
		if m.lastCleanup.IsZero() {
			m.lastCleanup = now
		} else if now.Sub(m.lastCleanup) > cleanupInterval {
			if err := m.store.Cleanup(m.cfg.Storage.RetentionDays); err != nil {
				metrics.StorageErrors.Inc()
				logging.Error("retention cleanup failed", "error", err)
			}
			m.lastCleanup = now
		}
	}
}

// fetchSchedules caches each zone's weekly schedule in the detector so
// override classification has schedule context. Per-zone failures are
// logged and skipped.
func (m *monitor) fetchSchedules(ctx context.Context, snap logic.SystemSnapshot) {
	for zoneID := range snap.Zones {
		schedule, err := m.source.FetchSchedule(ctx, zoneID)
		if err != nil {
			logging.Warn("could not fetch schedule", "zone", zoneID, "error", err)
			continue
		}
		if !schedule.Empty() {
			m.detector.SetZoneSchedule(zoneID, schedule)
			logging.Debug("cached schedule", "zone", zoneID)
		}
	}
}

func (m *monitor) publishSystem(event, reason string) {
	if err := m.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: m.now(),
		Event:     event,
		Reason:    reason,
	}); err != nil {
		logging.Error("failed to publish system event", "event", event, "error", err)
	}
}

// runLoop drives the monitor from tick and signal channels. Channels are
// injected so tests can drive the loop deterministically.
func (m *monitor) runLoop(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			logging.Info("received signal, shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if m.publisher != nil {
				m.publishSystem("SHUTDOWN", signalName)
			}
			m.notifier.NotifyShutdown(ctx)
			return nil

		case <-tick:
			m.pollOnce(ctx)
		}
	}
}
