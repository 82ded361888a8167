package logic

import (
	"strings"
	"testing"
	"time"
)

func zone(target float64, mode SetpointMode) ZoneSnapshot {
	temp := 19.5
	return ZoneSnapshot{
		ZoneID:       "z1",
		Name:         "Kitchen",
		CurrentTemp:  &temp,
		TargetTemp:   target,
		SetpointMode: mode,
	}
}

func TestClassifyRules(t *testing.T) {
	cfg := DefaultClassifierConfig()
	now := time.Date(2026, 1, 5, 21, 50, 0, 0, time.UTC)

	nextChange := time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC)
	preDropCtx := ScheduleContext{
		ScheduledTemp: Float64(20.0),
		NextChangeAt:  &nextChange,
		NextTemp:      Float64(16.0),
	}

	unavailable := zone(28.0, TemporaryOverride)
	unavailable.CurrentTemp = nil

	tests := []struct {
		name           string
		prev, next     ZoneSnapshot
		sctx           ScheduleContext
		wantType       OverrideType
		wantConfidence float64
		wantNote       string
	}{
		{
			name:           "35C firmware bug",
			prev:           zone(18.0, FollowSchedule),
			next:           zone(35.0, TemporaryOverride),
			wantType:       OverrideFirmware35CBug,
			wantConfidence: 0.9,
			wantNote:       "35°C",
		},
		{
			name:           "5C firmware bug",
			prev:           zone(18.0, FollowSchedule),
			next:           zone(5.0, TemporaryOverride),
			wantType:       OverrideFirmware5CBug,
			wantConfidence: 0.7,
			wantNote:       "5°C",
		},
		{
			name:           "pre-schedule drop",
			prev:           zone(20.0, FollowSchedule),
			next:           zone(28.0, TemporaryOverride),
			sctx:           preDropCtx,
			wantType:       OverridePreScheduleDrop,
			wantConfidence: 0.8,
			wantNote:       "10min before scheduled drop (20°C → 16°C)",
		},
		{
			name:           "threshold stuck",
			prev:           zone(20.0, FollowSchedule),
			next:           zone(20.3, TemporaryOverride),
			sctx:           ScheduleContext{ScheduledTemp: Float64(20.0)},
			wantType:       OverrideThresholdStuck,
			wantConfidence: 0.6,
			wantNote:       "20.3°C vs 20°C",
		},
		{
			name:           "comms loss",
			prev:           zone(18.0, FollowSchedule),
			next:           unavailable,
			wantType:       OverrideCommsLoss,
			wantConfidence: 0.8,
			wantNote:       "RF communication loss",
		},
		{
			name:           "user manual",
			prev:           zone(18.0, FollowSchedule),
			next:           zone(22.0, TemporaryOverride),
			wantType:       OverrideUserManual,
			wantConfidence: 0.5,
			wantNote:       "normal range",
		},
		{
			name:           "unknown",
			prev:           zone(18.0, FollowSchedule),
			next:           zone(30.0, TemporaryOverride),
			wantType:       OverrideUnknown,
			wantConfidence: 0.3,
			wantNote:       "No matching pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(cfg, tt.prev, tt.next, tt.sctx, now)
			if got.Type != tt.wantType {
				t.Errorf("type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if !strings.Contains(got.Notes, tt.wantNote) {
				t.Errorf("notes %q missing %q", got.Notes, tt.wantNote)
			}
		})
	}
}

// Rule order is deterministic: a 35.0°C target inside the pre-drop window must
// classify as the firmware bug (rule 1), not as a pre-schedule drop (rule 3).
func TestClassifyRuleOrder(t *testing.T) {
	cfg := DefaultClassifierConfig()
	now := time.Date(2026, 1, 5, 21, 50, 0, 0, time.UTC)
	nextChange := time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC)
	sctx := ScheduleContext{
		ScheduledTemp: Float64(20.0),
		NextChangeAt:  &nextChange,
		NextTemp:      Float64(16.0),
	}

	got := Classify(cfg, zone(20.0, FollowSchedule), zone(35.0, TemporaryOverride), sctx, now)
	if got.Type != OverrideFirmware35CBug {
		t.Errorf("expected firmware_35c to win over pre_sched_drop, got %s", got.Type)
	}
}

// Classify is a pure function: identical inputs yield identical outputs.
func TestClassifyDeterministic(t *testing.T) {
	cfg := DefaultClassifierConfig()
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	prev := zone(18.0, FollowSchedule)
	next := zone(22.0, TemporaryOverride)
	sctx := ScheduleContext{ScheduledTemp: Float64(18.0)}

	first := Classify(cfg, prev, next, sctx, now)
	for i := 0; i < 5; i++ {
		again := Classify(cfg, prev, next, sctx, now)
		if again != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", first, again)
		}
	}
}

func TestSuspicious(t *testing.T) {
	cfg := DefaultClassifierConfig()

	tests := []struct {
		target float64
		class  OverrideType
		want   bool
	}{
		{35.0, OverrideFirmware35CBug, true},
		{5.0, OverrideFirmware5CBug, true},
		{22.0, OverridePreScheduleDrop, true},
		{22.0, OverrideCommsLoss, true},
		{22.0, OverrideUserManual, false},
		{22.0, OverrideThresholdStuck, false},
		{22.0, OverrideUnknown, false},
		// Suspicious temp forces the flag regardless of classification.
		{35.0, OverrideUserManual, true},
	}
	for _, tt := range tests {
		if got := Suspicious(cfg, tt.target, tt.class); got != tt.want {
			t.Errorf("Suspicious(%v, %s) = %v, want %v", tt.target, tt.class, got, tt.want)
		}
	}
}

func TestIsOverrideDerivation(t *testing.T) {
	tests := []struct {
		mode SetpointMode
		want bool
	}{
		{FollowSchedule, false},
		{TemporaryOverride, true},
		{PermanentOverride, true},
	}
	for _, tt := range tests {
		z := zone(20.0, tt.mode)
		if got := z.IsOverride(); got != tt.want {
			t.Errorf("IsOverride(%s) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestIsAvailableDerivation(t *testing.T) {
	z := zone(20.0, FollowSchedule)
	if !z.IsAvailable() {
		t.Error("zone with a temperature reading should be available")
	}
	z.CurrentTemp = nil
	if z.IsAvailable() {
		t.Error("zone without a temperature reading should be unavailable")
	}
}
