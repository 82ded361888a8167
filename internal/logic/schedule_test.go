package logic

import (
	"testing"
	"time"
)

// weekdaySchedule builds a schedule with the same switchpoints every day.
func weekdaySchedule(points ...Switchpoint) WeeklySchedule {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var s WeeklySchedule
	for _, day := range days {
		s.DailySchedules = append(s.DailySchedules, DaySchedule{DayOfWeek: day, Switchpoints: points})
	}
	return s
}

func TestResolveBetweenSwitchpoints(t *testing.T) {
	sched := weekdaySchedule(
		Switchpoint{TimeOfDay: "06:00:00", HeatSetpoint: 20.0},
		Switchpoint{TimeOfDay: "22:00:00", HeatSetpoint: 16.0},
	)
	// 2026-01-05 is a Monday.
	now := time.Date(2026, 1, 5, 21, 0, 0, 0, time.UTC)

	ctx := ResolveScheduleContext(sched, now)

	if ctx.ScheduledTemp == nil || *ctx.ScheduledTemp != 20.0 {
		t.Errorf("expected scheduled temp 20.0, got %v", ctx.ScheduledTemp)
	}
	wantNext := time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC)
	if ctx.NextChangeAt == nil || !ctx.NextChangeAt.Equal(wantNext) {
		t.Errorf("expected next change %v, got %v", wantNext, ctx.NextChangeAt)
	}
	if ctx.NextTemp == nil || *ctx.NextTemp != 16.0 {
		t.Errorf("expected next temp 16.0, got %v", ctx.NextTemp)
	}
}

func TestResolveBeforeFirstSwitchpoint(t *testing.T) {
	sched := weekdaySchedule(
		Switchpoint{TimeOfDay: "06:00:00", HeatSetpoint: 20.0},
		Switchpoint{TimeOfDay: "22:00:00", HeatSetpoint: 16.0},
	)
	now := time.Date(2026, 1, 5, 5, 30, 0, 0, time.UTC)

	ctx := ResolveScheduleContext(sched, now)

	// No switchpoint has fired yet today, so there is no current setpoint.
	if ctx.ScheduledTemp != nil {
		t.Errorf("expected no scheduled temp before first switchpoint, got %v", *ctx.ScheduledTemp)
	}
	wantNext := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	if ctx.NextChangeAt == nil || !ctx.NextChangeAt.Equal(wantNext) {
		t.Errorf("expected next change %v, got %v", wantNext, ctx.NextChangeAt)
	}
	if ctx.NextTemp == nil || *ctx.NextTemp != 20.0 {
		t.Errorf("expected next temp 20.0, got %v", ctx.NextTemp)
	}
}

func TestResolveRollsToTomorrow(t *testing.T) {
	sched := weekdaySchedule(
		Switchpoint{TimeOfDay: "06:00:00", HeatSetpoint: 20.0},
		Switchpoint{TimeOfDay: "22:00:00", HeatSetpoint: 16.0},
	)
	now := time.Date(2026, 1, 5, 23, 15, 0, 0, time.UTC)

	ctx := ResolveScheduleContext(sched, now)

	if ctx.ScheduledTemp == nil || *ctx.ScheduledTemp != 16.0 {
		t.Errorf("expected scheduled temp 16.0, got %v", ctx.ScheduledTemp)
	}
	wantNext := time.Date(2026, 1, 6, 6, 0, 0, 0, time.UTC)
	if ctx.NextChangeAt == nil || !ctx.NextChangeAt.Equal(wantNext) {
		t.Errorf("expected next change tomorrow %v, got %v", wantNext, ctx.NextChangeAt)
	}
	if ctx.NextTemp == nil || *ctx.NextTemp != 20.0 {
		t.Errorf("expected next temp 20.0, got %v", ctx.NextTemp)
	}
}

func TestResolveExactSwitchpointTimeIsCurrent(t *testing.T) {
	sched := weekdaySchedule(
		Switchpoint{TimeOfDay: "06:00:00", HeatSetpoint: 20.0},
	)
	now := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)

	ctx := ResolveScheduleContext(sched, now)

	// A switchpoint whose time equals now has already taken effect.
	if ctx.ScheduledTemp == nil || *ctx.ScheduledTemp != 20.0 {
		t.Errorf("expected scheduled temp 20.0 at exact switchpoint time, got %v", ctx.ScheduledTemp)
	}
}

func TestResolveEmptySchedule(t *testing.T) {
	ctx := ResolveScheduleContext(WeeklySchedule{}, time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	if ctx.ScheduledTemp != nil || ctx.NextChangeAt != nil || ctx.NextTemp != nil {
		t.Errorf("expected all-absent context for empty schedule, got %+v", ctx)
	}
}

func TestResolveMissingToday(t *testing.T) {
	sched := WeeklySchedule{DailySchedules: []DaySchedule{
		{DayOfWeek: "Tuesday", Switchpoints: []Switchpoint{{TimeOfDay: "06:00:00", HeatSetpoint: 20.0}}},
	}}
	// Monday: today has no entries, schedule is not usable.
	ctx := ResolveScheduleContext(sched, time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	if ctx.ScheduledTemp != nil || ctx.NextChangeAt != nil || ctx.NextTemp != nil {
		t.Errorf("expected all-absent context when today has no entries, got %+v", ctx)
	}
}

func TestResolveMalformedTimeOfDay(t *testing.T) {
	sched := weekdaySchedule(
		Switchpoint{TimeOfDay: "6am", HeatSetpoint: 20.0},
	)
	ctx := ResolveScheduleContext(sched, time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	if ctx.ScheduledTemp != nil || ctx.NextChangeAt != nil || ctx.NextTemp != nil {
		t.Errorf("expected all-absent context for malformed schedule, got %+v", ctx)
	}
}

func TestResolveNoTomorrowEntries(t *testing.T) {
	sched := WeeklySchedule{DailySchedules: []DaySchedule{
		{DayOfWeek: "Monday", Switchpoints: []Switchpoint{{TimeOfDay: "06:00:00", HeatSetpoint: 20.0}}},
	}}
	now := time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC)

	ctx := ResolveScheduleContext(sched, now)

	if ctx.ScheduledTemp == nil || *ctx.ScheduledTemp != 20.0 {
		t.Errorf("expected scheduled temp 20.0, got %v", ctx.ScheduledTemp)
	}
	if ctx.NextChangeAt != nil || ctx.NextTemp != nil {
		t.Errorf("expected no next change without tomorrow entries, got %v / %v", ctx.NextChangeAt, ctx.NextTemp)
	}
}
