package logic

import "time"

// ResolveScheduleContext computes what a zone's weekly schedule says should be
// happening at now: the currently scheduled setpoint and the next switchpoint
// (time and setpoint). It is pure and never fails: a missing, empty, or
// malformed schedule yields an all-absent context, since schedule context is
// advisory and must not abort detection.
func ResolveScheduleContext(schedule WeeklySchedule, now time.Time) ScheduleContext {
	if schedule.Empty() {
		return ScheduleContext{}
	}

	todayName := now.Weekday().String()
	tomorrowName := now.AddDate(0, 0, 1).Weekday().String()

	var today, tomorrow []Switchpoint
	for _, ds := range schedule.DailySchedules {
		switch ds.DayOfWeek {
		case todayName:
			today = ds.Switchpoints
		case tomorrowName:
			tomorrow = ds.Switchpoints
		}
	}

	if len(today) == 0 {
		return ScheduleContext{}
	}

	nowSecs := secondsOfDay(now)

	var ctx ScheduleContext
	for _, sp := range today {
		spSecs, ok := parseTimeOfDay(sp.TimeOfDay)
		if !ok {
			return ScheduleContext{}
		}
		if spSecs <= nowSecs {
			ctx.ScheduledTemp = Float64(sp.HeatSetpoint)
			continue
		}
		ctx.NextChangeAt = Time(atTimeOfDay(now, spSecs))
		ctx.NextTemp = Float64(sp.HeatSetpoint)
		break
	}

	// No switchpoint left today: the next change is tomorrow's first.
	if ctx.NextChangeAt == nil && len(tomorrow) > 0 {
		sp := tomorrow[0]
		spSecs, ok := parseTimeOfDay(sp.TimeOfDay)
		if !ok {
			return ScheduleContext{}
		}
		ctx.NextChangeAt = Time(atTimeOfDay(now.AddDate(0, 0, 1), spSecs))
		ctx.NextTemp = Float64(sp.HeatSetpoint)
	}

	return ctx
}

// parseTimeOfDay parses "HH:MM:SS" into seconds since midnight.
func parseTimeOfDay(s string) (int, bool) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), true
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// atTimeOfDay returns day's date combined with a time-of-day in day's location.
func atTimeOfDay(day time.Time, secs int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		secs/3600, secs/60%60, secs%60, 0, day.Location())
}
