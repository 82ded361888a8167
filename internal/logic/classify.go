package logic

import (
	"fmt"
	"math"
	"time"
)

// ClassifierConfig holds the tunable constants of the rule engine. The
// defaults come from long-running field observation of HR92 valves.
type ClassifierConfig struct {
	// PreDropWindowMins flags overrides occurring within this many minutes
	// of a scheduled temperature decrease.
	PreDropWindowMins int

	// StuckThreshold flags overrides whose target is within this many
	// degrees of the scheduled setpoint.
	StuckThreshold float64

	// SuspiciousTemps are setpoints known to indicate firmware faults.
	SuspiciousTemps []float64
}

// DefaultClassifierConfig returns the field-observed defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		PreDropWindowMins: 15,
		StuckThreshold:    0.5,
		SuspiciousTemps:   []float64{35.0, 5.0},
	}
}

// IsSuspiciousTemp reports whether target is one of the configured
// firmware-fault setpoints.
func (c ClassifierConfig) IsSuspiciousTemp(target float64) bool {
	for _, t := range c.SuspiciousTemps {
		if target == t {
			return true
		}
	}
	return false
}

// Classify determines the likely cause of an override. It is a pure function
// of its inputs. Rules are ordered and the first match wins; each branch emits
// a note interpolating the exact values that fired, for forensic traceability.
func Classify(cfg ClassifierConfig, prev, next ZoneSnapshot, sctx ScheduleContext, now time.Time) Classification {
	// Rule 1: the 35°C firmware bug.
	if next.TargetTemp == 35.0 {
		return Classification{
			Type:       OverrideFirmware35CBug,
			Confidence: 0.9,
			Notes:      "Target is 35°C - known firmware bug value",
		}
	}

	// Rule 2: the 5°C firmware bug.
	if next.TargetTemp == 5.0 {
		return Classification{
			Type:       OverrideFirmware5CBug,
			Confidence: 0.7,
			Notes:      "Target is 5°C - possible firmware bug or comms loss",
		}
	}

	// Rule 3: override just before a scheduled decrease.
	if sctx.NextChangeAt != nil && sctx.NextTemp != nil {
		minsToNext := MinutesUntil(*sctx.NextChangeAt, now)
		if minsToNext <= cfg.PreDropWindowMins && *sctx.NextTemp < prev.TargetTemp {
			return Classification{
				Type:       OverridePreScheduleDrop,
				Confidence: 0.8,
				Notes: fmt.Sprintf("Override occurred %dmin before scheduled drop (%g°C → %g°C)",
					minsToNext, prev.TargetTemp, *sctx.NextTemp),
			}
		}
	}

	// Rule 4: target stuck within the 0.5°C threshold of the schedule.
	if sctx.ScheduledTemp != nil && math.Abs(next.TargetTemp-*sctx.ScheduledTemp) <= cfg.StuckThreshold {
		return Classification{
			Type:       OverrideThresholdStuck,
			Confidence: 0.6,
			Notes: fmt.Sprintf("Target within %g°C of schedule (%g°C vs %g°C) - possible threshold bug",
				cfg.StuckThreshold, next.TargetTemp, *sctx.ScheduledTemp),
		}
	}

	// Rule 5: zone not reporting a temperature.
	if !next.IsAvailable() {
		return Classification{
			Type:       OverrideCommsLoss,
			Confidence: 0.8,
			Notes:      "Zone reporting unavailable - possible RF communication loss",
		}
	}

	// Rule 6: a reasonable setpoint may be a legitimate user change.
	if next.TargetTemp >= 15.0 && next.TargetTemp <= 25.0 {
		return Classification{
			Type:       OverrideUserManual,
			Confidence: 0.5,
			Notes:      "Temperature in normal range - may be legitimate user override",
		}
	}

	return Classification{
		Type:       OverrideUnknown,
		Confidence: 0.3,
		Notes:      "No matching pattern identified",
	}
}

// Suspicious derives the is_suspicious flag: a firmware-fault setpoint, or a
// classification that indicates a device/comms defect rather than user action.
func Suspicious(cfg ClassifierConfig, target float64, class OverrideType) bool {
	if cfg.IsSuspiciousTemp(target) {
		return true
	}
	switch class {
	case OverrideFirmware35CBug, OverrideFirmware5CBug, OverridePreScheduleDrop, OverrideCommsLoss:
		return true
	case OverrideUserManual, OverrideThresholdStuck, OverrideUnknown:
		return false
	}
	return false
}

// MinutesUntil returns the whole minutes from now until t (negative if past).
func MinutesUntil(t, now time.Time) int {
	return int(t.Sub(now).Minutes())
}
