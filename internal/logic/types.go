// Package logic contains pure business logic for override detection and
// classification. This package has NO external dependencies (no network,
// storage, or time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// SetpointMode is the vendor-reported setpoint mode of a zone.
type SetpointMode string

const (
	FollowSchedule    SetpointMode = "FollowSchedule"
	TemporaryOverride SetpointMode = "TemporaryOverride"
	PermanentOverride SetpointMode = "PermanentOverride"
)

// OverrideType classifies the likely cause of an override, based on known
// HR92 failure patterns observed in the field.
type OverrideType string

const (
	OverrideUnknown         OverrideType = "unknown"
	OverrideUserManual      OverrideType = "user_manual"     // plausible legitimate user change
	OverrideFirmware35CBug  OverrideType = "firmware_35c"    // the optimum-start 35°C bug
	OverrideFirmware5CBug   OverrideType = "firmware_5c"     // zones dropping to 5°C
	OverridePreScheduleDrop OverrideType = "pre_sched_drop"  // override just before a scheduled decrease
	OverrideThresholdStuck  OverrideType = "threshold_stuck" // 0.5°C threshold issue
	OverrideCommsLoss       OverrideType = "comms_loss"      // possible RF communication loss
)

// ZoneSnapshot is the observed state of a single zone at an instant.
// Immutable once constructed.
type ZoneSnapshot struct {
	ZoneID       string
	Name         string
	CurrentTemp  *float64 // nil when the sensor is unavailable
	TargetTemp   float64
	SetpointMode SetpointMode
	Until        *time.Time // temporary overrides only
	ActiveFaults []string
	ObservedAt   time.Time
}

// IsAvailable reports whether the zone's sensor reported a temperature.
func (z ZoneSnapshot) IsAvailable() bool {
	return z.CurrentTemp != nil
}

// IsOverride reports whether the zone has departed from its schedule.
// This is the only derivation: mode ∈ {TemporaryOverride, PermanentOverride}.
func (z ZoneSnapshot) IsOverride() bool {
	return z.SetpointMode == TemporaryOverride || z.SetpointMode == PermanentOverride
}

// SystemSnapshot is the full system state at a point in time. A new instance
// is produced every poll cycle; it is never mutated after construction.
type SystemSnapshot struct {
	CapturedAt time.Time
	SystemMode string // "Auto", "Away", "HeatingOff", ...
	Zones      map[string]ZoneSnapshot
}

// Switchpoint is a scheduled (time-of-day, setpoint) pair.
type Switchpoint struct {
	TimeOfDay    string // "HH:MM:SS"
	HeatSetpoint float64
}

// DaySchedule holds one weekday's switchpoints in time order.
type DaySchedule struct {
	DayOfWeek    string // "Monday" .. "Sunday"
	Switchpoints []Switchpoint
}

// WeeklySchedule is a zone's programmed weekly schedule.
type WeeklySchedule struct {
	DailySchedules []DaySchedule
}

// Empty reports whether the schedule carries no switchpoints at all.
func (s WeeklySchedule) Empty() bool {
	return len(s.DailySchedules) == 0
}

// ScheduleContext describes what a zone's schedule says should be happening
// at a given instant. All fields are optional: an unusable or unavailable
// schedule yields the zero value, which is advisory-only and never an error.
type ScheduleContext struct {
	ScheduledTemp *float64
	NextChangeAt  *time.Time
	NextTemp      *float64
}

// Classification is the classifier verdict for a single override event.
type Classification struct {
	Type       OverrideType
	Confidence float64 // 0.0 to 1.0
	Notes      string  // human-readable, values interpolated verbatim
}

// OverrideEvent is a detected override START (or override-to-override CHANGE)
// with its forensic context. Immutable once created; identity is implicit
// (zone + timestamp).
type OverrideEvent struct {
	ZoneID    string
	ZoneName  string
	Timestamp time.Time

	PrevMode    SetpointMode
	NewMode     SetpointMode
	PrevTarget  float64
	NewTarget   float64
	CurrentTemp *float64

	Classification Classification

	// Schedule context at detection time.
	ScheduledTarget   *float64
	NextChangeAt      *time.Time
	NextScheduledTemp *float64
	MinutesToNext     *int
	DeltaFromSchedule *float64

	IsSuspicious bool
}

// ClearedOverrideEvent is a zone returning to its schedule.
type ClearedOverrideEvent struct {
	ZoneID     string
	ZoneName   string
	Timestamp  time.Time
	PrevMode   SetpointMode
	PrevTarget float64
	NewTarget  float64

	// Whole minutes the override was active. Nil when the override predates
	// monitoring and no start time was recorded.
	DurationMins *int
}

// Float64 returns a pointer to v. Convenience for optional fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
