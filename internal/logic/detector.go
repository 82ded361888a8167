package logic

import "time"

// Detector compares successive system snapshots and turns zone transitions
// into override START and CLEAR events. It holds the last-seen snapshot,
// per-zone override start times, and cached weekly schedules. Created once at
// process start and mutated exactly once per poll cycle; it is not safe for
// concurrent use and is never persisted; rebuilding after a restart treats
// already-overridden zones as "active at startup" with an unknown true start.
type Detector struct {
	cfg ClassifierConfig

	prev          *SystemSnapshot
	overrideStart map[string]time.Time
	schedules     map[string]WeeklySchedule
}

// NewDetector creates a Detector with the given classifier configuration.
func NewDetector(cfg ClassifierConfig) *Detector {
	return &Detector{
		cfg:           cfg,
		overrideStart: make(map[string]time.Time),
		schedules:     make(map[string]WeeklySchedule),
	}
}

// SetZoneSchedule caches a zone's weekly schedule for forensic context.
// Schedules are refreshed out-of-band every few hours; staleness up to the
// refresh period is tolerated.
func (d *Detector) SetZoneSchedule(zoneID string, schedule WeeklySchedule) {
	d.schedules[zoneID] = schedule
}

// Compare diffs the new snapshot against the previous one. It must be called
// once per poll with strictly increasing CapturedAt. The very first call
// records start times for zones already in override and emits nothing, since
// neither the true start nor the cause of a pre-existing override is knowable.
func (d *Detector) Compare(snap SystemSnapshot) ([]OverrideEvent, []ClearedOverrideEvent) {
	var started []OverrideEvent
	var cleared []ClearedOverrideEvent

	if d.prev == nil {
		for zoneID, zone := range snap.Zones {
			if zone.IsOverride() {
				d.overrideStart[zoneID] = snap.CapturedAt
			}
		}
		d.prev = &snap
		return nil, nil
	}

	for zoneID, zone := range snap.Zones {
		prevZone, ok := d.prev.Zones[zoneID]
		if !ok {
			// Newly appeared zone: no prior state to diff against.
			if zone.IsOverride() {
				d.overrideStart[zoneID] = snap.CapturedAt
			}
			continue
		}

		switch {
		case zone.IsOverride() && !prevZone.IsOverride():
			// START
			d.overrideStart[zoneID] = snap.CapturedAt
			started = append(started, d.buildEvent(prevZone, zone, snap.CapturedAt))

		case !zone.IsOverride() && prevZone.IsOverride():
			// CLEAR
			var duration *int
			if start, ok := d.overrideStart[zoneID]; ok {
				duration = Int(int(snap.CapturedAt.Sub(start).Minutes()))
				delete(d.overrideStart, zoneID)
			}
			cleared = append(cleared, ClearedOverrideEvent{
				ZoneID:       zoneID,
				ZoneName:     zone.Name,
				Timestamp:    snap.CapturedAt,
				PrevMode:     prevZone.SetpointMode,
				PrevTarget:   prevZone.TargetTemp,
				NewTarget:    zone.TargetTemp,
				DurationMins: duration,
			})

		case zone.IsOverride() && prevZone.IsOverride() && zone.TargetTemp != prevZone.TargetTemp:
			// Override changed while still overriding: re-classify as a new
			// START but keep the original start time, so the eventual CLEAR
			// reports the duration of the whole override period.
			started = append(started, d.buildEvent(prevZone, zone, snap.CapturedAt))
		}
	}

	// Zones present previously but absent now are not reconciled: no CLEAR
	// is emitted and any start-time entry stays. Home zone sets are stable,
	// so this is accepted rather than garbage-collected.

	d.prev = &snap
	return started, cleared
}

// ActiveOverrides returns a copy of zone_id → override start time for all
// overrides currently being tracked.
func (d *Detector) ActiveOverrides() map[string]time.Time {
	out := make(map[string]time.Time, len(d.overrideStart))
	for k, v := range d.overrideStart {
		out[k] = v
	}
	return out
}

func (d *Detector) buildEvent(prev, next ZoneSnapshot, ts time.Time) OverrideEvent {
	sctx := ResolveScheduleContext(d.schedules[next.ZoneID], ts)

	var minsToNext *int
	if sctx.NextChangeAt != nil {
		minsToNext = Int(MinutesUntil(*sctx.NextChangeAt, ts))
	}

	var delta *float64
	if sctx.ScheduledTemp != nil {
		delta = Float64(next.TargetTemp - *sctx.ScheduledTemp)
	}

	class := Classify(d.cfg, prev, next, sctx, ts)

	return OverrideEvent{
		ZoneID:            next.ZoneID,
		ZoneName:          next.Name,
		Timestamp:         ts,
		PrevMode:          prev.SetpointMode,
		NewMode:           next.SetpointMode,
		PrevTarget:        prev.TargetTemp,
		NewTarget:         next.TargetTemp,
		CurrentTemp:       next.CurrentTemp,
		Classification:    class,
		ScheduledTarget:   sctx.ScheduledTemp,
		NextChangeAt:      sctx.NextChangeAt,
		NextScheduledTemp: sctx.NextTemp,
		MinutesToNext:     minsToNext,
		DeltaFromSchedule: delta,
		IsSuspicious:      Suspicious(d.cfg, next.TargetTemp, class.Type),
	}
}
