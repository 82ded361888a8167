package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/evohome-monitor/internal/config"
	"github.com/sweeney/evohome-monitor/internal/evohome"
	"github.com/sweeney/evohome-monitor/internal/logic"
	"github.com/sweeney/evohome-monitor/internal/mqtt"
	"github.com/sweeney/evohome-monitor/internal/notify"
	"github.com/sweeney/evohome-monitor/internal/status"
	"github.com/sweeney/evohome-monitor/internal/store"
)

var baseTime = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC) // a Monday

func snapAt(offset time.Duration, zones ...logic.ZoneSnapshot) logic.SystemSnapshot {
	at := baseTime.Add(offset)
	snap := logic.SystemSnapshot{
		CapturedAt: at,
		SystemMode: "Auto",
		Zones:      make(map[string]logic.ZoneSnapshot, len(zones)),
	}
	for _, z := range zones {
		z.ObservedAt = at
		snap.Zones[z.ZoneID] = z
	}
	return snap
}

func loungeZone(target float64, mode logic.SetpointMode) logic.ZoneSnapshot {
	return logic.ZoneSnapshot{
		ZoneID:       "z1",
		Name:         "Lounge",
		CurrentTemp:  logic.Float64(19.5),
		TargetTemp:   target,
		SetpointMode: mode,
	}
}

// newTestMonitor wires a monitor from fakes and a temp-file store.
func newTestMonitor(t *testing.T, fake *evohome.Fake) (*monitor, *notify.FakeSender, *mqtt.FakePublisher) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sender := notify.NewFakeSender()
	policy := notify.NewPolicy(notify.PolicyConfig{Cooldown: 30 * time.Minute})
	notifier := notify.NewManager(notify.ManagerConfig{AlertOnAllOverrides: true}, policy, sender,
		func() time.Time { return baseTime })

	pub := mqtt.NewFakePublisher()

	cfg := config.Default()
	cfg.Evohome.Username = "user@example.com"
	cfg.Evohome.Password = "hunter2"
	cfg.Telegram.Enabled = false

	m := &monitor{
		cfg:        cfg,
		source:     fake,
		detector:   logic.NewDetector(logic.DefaultClassifierConfig()),
		store:      st,
		notifier:   notifier,
		publisher:  pub,
		mqttStatus: pub,
		tracker:    status.NewTracker(baseTime, status.Config{}),
		now:        func() time.Time { return baseTime },
	}
	return m, sender, pub
}

// driveLoop runs runLoop for n ticks then delivers sig and waits for exit.
func driveLoop(t *testing.T, m *monitor, ticks int, sig os.Signal) error {
	t.Helper()

	tick := make(chan time.Time)
	sigCh := make(chan os.Signal, 1)
	errCh := make(chan error, 1)

	go func() {
		errCh <- m.runLoop(context.Background(), tick, sigCh)
	}()

	for i := 0; i < ticks; i++ {
		tick <- baseTime.Add(time.Duration(i) * 5 * time.Minute)
	}
	sigCh <- sig

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not exit after signal")
		return nil
	}
}

func TestRunLoopShutdownPublishesSystemEvent(t *testing.T) {
	fake := evohome.NewFake(snapAt(0, loungeZone(18.0, logic.FollowSchedule)))
	m, sender, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "SHUTDOWN" || pub.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("system event = %+v", pub.SystemEvents[0])
	}

	// Shutdown notification bypasses all gates.
	if len(sender.Messages) != 1 || !strings.Contains(sender.Messages[0].Text, "Stopped") {
		t.Errorf("messages = %+v", sender.Messages)
	}
}

func TestPollCycleDetectsOverride(t *testing.T) {
	fake := evohome.NewFake(
		snapAt(0, loungeZone(18.0, logic.FollowSchedule)),
		snapAt(5*time.Minute, loungeZone(35.0, logic.TemporaryOverride)),
	)
	m, sender, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Overrides) != 1 {
		t.Fatalf("expected 1 published override, got %d", len(pub.Overrides))
	}
	ev := pub.Overrides[0]
	if ev.Classification.Type != logic.OverrideFirmware35CBug || !ev.IsSuspicious {
		t.Errorf("classification = %+v", ev.Classification)
	}

	// One alert plus the shutdown notification.
	var alerts int
	for _, msg := range sender.Messages {
		if strings.Contains(msg.Text, "Override Detected") {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("got %d override alerts, want 1", alerts)
	}

	// The event must be in the forensic store.
	events, err := m.store.Events(store.EventFilter{Days: 365})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].OverrideType != string(logic.OverrideFirmware35CBug) {
		t.Errorf("stored events = %+v", events)
	}
}

func TestPollCycleDetectsClear(t *testing.T) {
	fake := evohome.NewFake(
		snapAt(0, loungeZone(18.0, logic.FollowSchedule)),
		snapAt(5*time.Minute, loungeZone(35.0, logic.TemporaryOverride)),
		snapAt(35*time.Minute, loungeZone(18.0, logic.FollowSchedule)),
	)
	m, _, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Cleared) != 1 {
		t.Fatalf("expected 1 cleared event, got %d", len(pub.Cleared))
	}
	if d := pub.Cleared[0].DurationMins; d == nil || *d != 30 {
		t.Errorf("duration = %v, want 30", d)
	}

	events, err := m.store.Events(store.EventFilter{Days: 365})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("stored %d events, want start + clear", len(events))
	}
}

func TestEscalationAtThirdConsecutiveFailure(t *testing.T) {
	fake := evohome.NewFake(snapAt(0, loungeZone(18.0, logic.FollowSchedule)))
	fake.FetchError = errors.New("cloud unreachable")
	m, sender, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 4, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var errorAlerts int
	for _, msg := range sender.Messages {
		if strings.Contains(msg.Text, "Monitor Error") {
			errorAlerts++
		}
	}
	// Escalation fires at exactly the third failure, not again at the fourth.
	if errorAlerts != 1 {
		t.Errorf("got %d error alerts, want 1", errorAlerts)
	}

	var pollFailures int
	for _, ev := range pub.SystemEvents {
		if ev.Event == "POLL_FAILURE" {
			pollFailures++
		}
	}
	if pollFailures != 1 {
		t.Errorf("got %d POLL_FAILURE system events, want 1", pollFailures)
	}

	if snap := m.tracker.Snapshot(); snap.Counts.ConsecutiveFailures != 4 {
		t.Errorf("ConsecutiveFailures = %d, want 4", snap.Counts.ConsecutiveFailures)
	}
}

func TestRecoveryResetsFailureStreak(t *testing.T) {
	fake := evohome.NewFake(snapAt(0, loungeZone(18.0, logic.FollowSchedule)))
	fake.FetchError = errors.New("cloud unreachable")
	m, sender, _ := newTestMonitor(t, fake)
	ctx := context.Background()

	// Two failures, then recovery, then two more failures: the streak never
	// reaches three, so no escalation.
	m.pollOnce(ctx)
	m.pollOnce(ctx)
	fake.FetchError = nil
	m.pollOnce(ctx)
	fake.FetchError = errors.New("cloud unreachable")
	m.pollOnce(ctx)
	m.pollOnce(ctx)

	for _, msg := range sender.Messages {
		if strings.Contains(msg.Text, "Monitor Error") {
			t.Errorf("unexpected escalation: %q", msg.Text)
		}
	}
}

func TestScheduleContextFlowsIntoClassification(t *testing.T) {
	// Monday schedule: 20° from 06:00, dropping to 16° at 12:10. An override
	// at 12:05 sits inside the pre-drop window.
	schedule := logic.WeeklySchedule{DailySchedules: []logic.DaySchedule{
		{DayOfWeek: "Monday", Switchpoints: []logic.Switchpoint{
			{TimeOfDay: "06:00:00", HeatSetpoint: 20.0},
			{TimeOfDay: "12:10:00", HeatSetpoint: 16.0},
		}},
	}}

	fake := evohome.NewFake(
		snapAt(0, loungeZone(20.0, logic.FollowSchedule)),
		snapAt(5*time.Minute, loungeZone(20.5, logic.TemporaryOverride)),
	)
	fake.SetSchedule("z1", schedule)
	m, _, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Overrides) != 1 {
		t.Fatalf("expected 1 override, got %d", len(pub.Overrides))
	}
	// The schedule was fetched after the first poll and fed the classifier.
	ev := pub.Overrides[0]
	if ev.Classification.Type != logic.OverridePreScheduleDrop {
		t.Errorf("classification = %v, want pre_sched_drop", ev.Classification.Type)
	}
	if ev.MinutesToNext == nil || *ev.MinutesToNext != 5 {
		t.Errorf("MinutesToNext = %v, want 5", ev.MinutesToNext)
	}
}

func TestFirstPollEmitsNoEvents(t *testing.T) {
	// A zone already overridden at startup produces no START.
	fake := evohome.NewFake(snapAt(0, loungeZone(35.0, logic.TemporaryOverride)))
	m, _, pub := newTestMonitor(t, fake)

	if err := driveLoop(t, m, 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Overrides) != 0 {
		t.Errorf("expected no override events on the first poll, got %d", len(pub.Overrides))
	}
	// But the pre-existing override is tracked for the dashboard.
	if snap := m.tracker.Snapshot(); len(snap.ActiveOverrides) != 1 {
		t.Errorf("ActiveOverrides = %v", snap.ActiveOverrides)
	}
}
