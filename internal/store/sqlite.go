// Package store persists forensic history in SQLite: periodic state
// snapshots, per-zone readings, and the override event log that the
// analysis queries run over.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/evohome-monitor/internal/logging"
	"github.com/sweeney/evohome-monitor/internal/logic"
)

// Store handles persistence of snapshots and override events.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Error("failed to open database", "path", path, "error", err)
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		logging.Error("failed to migrate database", "error", err)
		return nil, err
	}

	logging.Info("database initialized", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS state_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		system_mode TEXT,
		zones_json TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS zone_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		zone_name TEXT NOT NULL,
		current_temp REAL,
		target_temp REAL NOT NULL,
		setpoint_mode TEXT NOT NULL,
		is_available INTEGER NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS override_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		zone_name TEXT NOT NULL,
		event_type TEXT NOT NULL,
		previous_mode TEXT,
		new_mode TEXT,
		previous_target REAL,
		new_target REAL,
		current_temp REAL,
		override_type TEXT,
		confidence REAL,
		scheduled_target REAL,
		next_schedule_change TEXT,
		next_scheduled_temp REAL,
		minutes_to_next_change INTEGER,
		temp_delta_from_schedule REAL,
		is_suspicious INTEGER,
		diagnostic_notes TEXT,
		duration_mins INTEGER,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_zone_history_zone ON zone_history(zone_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_override_events_zone ON override_events(zone_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_override_events_type ON override_events(override_type, timestamp);
	CREATE INDEX IF NOT EXISTS idx_state_snapshots_time ON state_snapshots(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Event types stored in override_events.event_type.
const (
	EventTypeStart   = "override_start"
	EventTypeCleared = "override_cleared"
)

// zoneJSON is the per-zone shape serialized into state_snapshots.zones_json.
type zoneJSON struct {
	Name         string   `json:"name"`
	CurrentTemp  *float64 `json:"current_temp"`
	TargetTemp   float64  `json:"target_temp"`
	SetpointMode string   `json:"setpoint_mode"`
	IsAvailable  bool     `json:"is_available"`
	ActiveFaults []string `json:"active_faults"`
}

// AppendSnapshot stores a full system snapshot.
func (s *Store) AppendSnapshot(snap logic.SystemSnapshot) error {
	zones := make(map[string]zoneJSON, len(snap.Zones))
	for id, z := range snap.Zones {
		zones[id] = zoneJSON{
			Name:         z.Name,
			CurrentTemp:  z.CurrentTemp,
			TargetTemp:   z.TargetTemp,
			SetpointMode: string(z.SetpointMode),
			IsAvailable:  z.IsAvailable(),
			ActiveFaults: z.ActiveFaults,
		}
	}
	blob, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO state_snapshots (timestamp, system_mode, zones_json)
		VALUES (?, ?, ?)`,
		snap.CapturedAt.Format(time.RFC3339), snap.SystemMode, string(blob))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// AppendZoneState stores one zone reading in zone_history.
func (s *Store) AppendZoneState(zone logic.ZoneSnapshot) error {
	available := 0
	if zone.IsAvailable() {
		available = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO zone_history
		(timestamp, zone_id, zone_name, current_temp, target_temp, setpoint_mode, is_available)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		zone.ObservedAt.Format(time.RFC3339), zone.ZoneID, zone.Name,
		zone.CurrentTemp, zone.TargetTemp, string(zone.SetpointMode), available)
	if err != nil {
		return fmt.Errorf("insert zone state: %w", err)
	}
	return nil
}

// AppendOverrideEvent stores an override start (or re-classified change).
func (s *Store) AppendOverrideEvent(ev logic.OverrideEvent) error {
	suspicious := 0
	if ev.IsSuspicious {
		suspicious = 1
	}
	var nextChange any
	if ev.NextChangeAt != nil {
		nextChange = ev.NextChangeAt.Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		INSERT INTO override_events
		(timestamp, zone_id, zone_name, event_type, previous_mode, new_mode,
		 previous_target, new_target, current_temp, override_type, confidence,
		 scheduled_target, next_schedule_change, next_scheduled_temp,
		 minutes_to_next_change, temp_delta_from_schedule, is_suspicious,
		 diagnostic_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.Format(time.RFC3339), ev.ZoneID, ev.ZoneName, EventTypeStart,
		string(ev.PrevMode), string(ev.NewMode),
		ev.PrevTarget, ev.NewTarget, ev.CurrentTemp,
		string(ev.Classification.Type), ev.Classification.Confidence,
		ev.ScheduledTarget, nextChange, ev.NextScheduledTemp,
		ev.MinutesToNext, ev.DeltaFromSchedule, suspicious,
		ev.Classification.Notes)
	if err != nil {
		return fmt.Errorf("insert override event: %w", err)
	}
	logging.Debug("logged override event", "zone", ev.ZoneName)
	return nil
}

// AppendCleared stores an override cleared event.
func (s *Store) AppendCleared(ev logic.ClearedOverrideEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO override_events
		(timestamp, zone_id, zone_name, event_type, previous_mode, new_mode,
		 previous_target, new_target, duration_mins)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.Format(time.RFC3339), ev.ZoneID, ev.ZoneName, EventTypeCleared,
		string(ev.PrevMode), string(logic.FollowSchedule),
		ev.PrevTarget, ev.NewTarget, ev.DurationMins)
	if err != nil {
		return fmt.Errorf("insert cleared event: %w", err)
	}
	logging.Debug("logged override cleared", "zone", ev.ZoneName)
	return nil
}

// EventRecord is one row of the override_events table.
type EventRecord struct {
	ID              int64      `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	ZoneID          string     `json:"zone_id"`
	ZoneName        string     `json:"zone_name"`
	EventType       string     `json:"event_type"`
	PrevMode        string     `json:"previous_mode"`
	NewMode         string     `json:"new_mode"`
	PrevTarget      *float64   `json:"previous_target"`
	NewTarget       *float64   `json:"new_target"`
	CurrentTemp     *float64   `json:"current_temp"`
	OverrideType    string     `json:"override_type"`
	Confidence      *float64   `json:"confidence"`
	ScheduledTarget *float64   `json:"scheduled_target"`
	NextChangeAt    *time.Time `json:"next_schedule_change"`
	NextScheduled   *float64   `json:"next_scheduled_temp"`
	MinutesToNext   *int       `json:"minutes_to_next_change"`
	DeltaFromSched  *float64   `json:"temp_delta_from_schedule"`
	IsSuspicious    bool       `json:"is_suspicious"`
	Notes           string     `json:"diagnostic_notes"`
	DurationMins    *int       `json:"duration_mins"`
}

// EventFilter narrows an Events query. Zero values mean "no filter";
// Days defaults to 30.
type EventFilter struct {
	ZoneID         string
	OverrideType   string
	Days           int
	SuspiciousOnly bool
}

// Events queries override events, most recent first.
func (s *Store) Events(f EventFilter) ([]EventRecord, error) {
	days := f.Days
	if days <= 0 {
		days = 30
	}
	cutoff := s.now().AddDate(0, 0, -days).Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(`SELECT id, timestamp, zone_id, zone_name, event_type,
		previous_mode, new_mode, previous_target, new_target, current_temp,
		override_type, confidence, scheduled_target, next_schedule_change,
		next_scheduled_temp, minutes_to_next_change, temp_delta_from_schedule,
		is_suspicious, diagnostic_notes, duration_mins
		FROM override_events WHERE timestamp > ?`)
	args := []any{cutoff}

	if f.ZoneID != "" {
		b.WriteString(" AND zone_id = ?")
		args = append(args, f.ZoneID)
	}
	if f.OverrideType != "" {
		b.WriteString(" AND override_type = ?")
		args = append(args, f.OverrideType)
	}
	if f.SuspiciousOnly {
		b.WriteString(" AND is_suspicious = 1")
	}
	b.WriteString(" ORDER BY timestamp DESC")

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			rec                  EventRecord
			ts                   string
			prevMode, newMode    sql.NullString
			overrideType, notes  sql.NullString
			nextChange           sql.NullString
			suspicious, duration sql.NullInt64
			minsToNext           sql.NullInt64
		)
		err := rows.Scan(&rec.ID, &ts, &rec.ZoneID, &rec.ZoneName, &rec.EventType,
			&prevMode, &newMode, &rec.PrevTarget, &rec.NewTarget, &rec.CurrentTemp,
			&overrideType, &rec.Confidence, &rec.ScheduledTarget, &nextChange,
			&rec.NextScheduled, &minsToNext, &rec.DeltaFromSched,
			&suspicious, &notes, &duration)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		rec.PrevMode = prevMode.String
		rec.NewMode = newMode.String
		rec.OverrideType = overrideType.String
		rec.Notes = notes.String
		rec.IsSuspicious = suspicious.Int64 == 1
		if nextChange.Valid {
			if t, err := time.Parse(time.RFC3339, nextChange.String); err == nil {
				rec.NextChangeAt = &t
			}
		}
		if minsToNext.Valid {
			rec.MinutesToNext = logic.Int(int(minsToNext.Int64))
		}
		if duration.Valid {
			rec.DurationMins = logic.Int(int(duration.Int64))
		}
		events = append(events, rec)
	}
	return events, rows.Err()
}

// ZoneHistoryRecord is one row of the zone_history table.
type ZoneHistoryRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	ZoneID       string    `json:"zone_id"`
	ZoneName     string    `json:"zone_name"`
	CurrentTemp  *float64  `json:"current_temp"`
	TargetTemp   float64   `json:"target_temp"`
	SetpointMode string    `json:"setpoint_mode"`
	IsAvailable  bool      `json:"is_available"`
}

// ZoneHistory returns recent readings for one zone, most recent first.
func (s *Store) ZoneHistory(zoneID string, hours int) ([]ZoneHistoryRecord, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)

	rows, err := s.db.Query(`
		SELECT timestamp, zone_id, zone_name, current_temp, target_temp, setpoint_mode, is_available
		FROM zone_history
		WHERE zone_id = ? AND timestamp > ?
		ORDER BY timestamp DESC`, zoneID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query zone history: %w", err)
	}
	defer rows.Close()

	var records []ZoneHistoryRecord
	for rows.Next() {
		var (
			rec       ZoneHistoryRecord
			ts        string
			available int
		)
		if err := rows.Scan(&ts, &rec.ZoneID, &rec.ZoneName, &rec.CurrentTemp,
			&rec.TargetTemp, &rec.SetpointMode, &available); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		rec.IsAvailable = available == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ZoneFrequency aggregates override starts per zone.
type ZoneFrequency struct {
	ZoneID          string `json:"zone_id"`
	ZoneName        string `json:"zone_name"`
	OverrideCount   int    `json:"override_count"`
	SuspiciousCount int    `json:"suspicious_count"`
}

// OverrideFrequency returns per-zone start counts over the window, busiest
// zones first.
func (s *Store) OverrideFrequency(days int) ([]ZoneFrequency, error) {
	cutoff := s.cutoffDays(days)
	rows, err := s.db.Query(`
		SELECT zone_id, zone_name,
		       COUNT(*) AS override_count,
		       SUM(CASE WHEN is_suspicious = 1 THEN 1 ELSE 0 END) AS suspicious_count
		FROM override_events
		WHERE timestamp > ? AND event_type = ?
		GROUP BY zone_id, zone_name
		ORDER BY override_count DESC`, cutoff, EventTypeStart)
	if err != nil {
		return nil, fmt.Errorf("query override frequency: %w", err)
	}
	defer rows.Close()

	var freqs []ZoneFrequency
	for rows.Next() {
		var f ZoneFrequency
		if err := rows.Scan(&f.ZoneID, &f.ZoneName, &f.OverrideCount, &f.SuspiciousCount); err != nil {
			return nil, fmt.Errorf("scan frequency row: %w", err)
		}
		freqs = append(freqs, f)
	}
	return freqs, rows.Err()
}

// HourCount is a per-hour override count.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// HourlyDistribution returns override starts bucketed by hour of day.
func (s *Store) HourlyDistribution(days int) ([]HourCount, error) {
	cutoff := s.cutoffDays(days)
	rows, err := s.db.Query(`
		SELECT CAST(strftime('%H', timestamp) AS INTEGER) AS hour, COUNT(*) AS count
		FROM override_events
		WHERE timestamp > ? AND event_type = ?
		GROUP BY hour
		ORDER BY hour`, cutoff, EventTypeStart)
	if err != nil {
		return nil, fmt.Errorf("query hourly distribution: %w", err)
	}
	defer rows.Close()

	var buckets []HourCount
	for rows.Next() {
		var h HourCount
		if err := rows.Scan(&h.Hour, &h.Count); err != nil {
			return nil, fmt.Errorf("scan hour row: %w", err)
		}
		buckets = append(buckets, h)
	}
	return buckets, rows.Err()
}

// TypeCount aggregates override starts per classified type.
type TypeCount struct {
	OverrideType  string  `json:"override_type"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// TypeDistribution returns override starts grouped by classification.
func (s *Store) TypeDistribution(days int) ([]TypeCount, error) {
	cutoff := s.cutoffDays(days)
	rows, err := s.db.Query(`
		SELECT override_type, COUNT(*) AS count, AVG(confidence) AS avg_confidence
		FROM override_events
		WHERE timestamp > ? AND event_type = ?
		GROUP BY override_type
		ORDER BY count DESC`, cutoff, EventTypeStart)
	if err != nil {
		return nil, fmt.Errorf("query type distribution: %w", err)
	}
	defer rows.Close()

	var counts []TypeCount
	for rows.Next() {
		var c TypeCount
		if err := rows.Scan(&c.OverrideType, &c.Count, &c.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan type row: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// DiagnosticsSummary is the dashboard rollup of the aggregate queries.
type DiagnosticsSummary struct {
	ZoneFrequency    []ZoneFrequency `json:"zone_frequency"`
	TimeDistribution []HourCount     `json:"time_distribution"`
	TypeDistribution []TypeCount     `json:"type_distribution"`
	TotalOverrides   int             `json:"total_overrides"`
	TotalSuspicious  int             `json:"total_suspicious"`
}

// Diagnostics builds the combined summary over the window.
func (s *Store) Diagnostics(days int) (DiagnosticsSummary, error) {
	freq, err := s.OverrideFrequency(days)
	if err != nil {
		return DiagnosticsSummary{}, err
	}
	hours, err := s.HourlyDistribution(days)
	if err != nil {
		return DiagnosticsSummary{}, err
	}
	types, err := s.TypeDistribution(days)
	if err != nil {
		return DiagnosticsSummary{}, err
	}

	summary := DiagnosticsSummary{
		ZoneFrequency:    freq,
		TimeDistribution: hours,
		TypeDistribution: types,
	}
	for _, f := range freq {
		summary.TotalOverrides += f.OverrideCount
		summary.TotalSuspicious += f.SuspiciousCount
	}
	return summary, nil
}

// Cleanup deletes rows older than the retention window and reclaims space.
func (s *Store) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	var total int64
	for _, table := range []string{"state_snapshots", "zone_history", "override_events"} {
		res, err := s.db.Exec("DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		logging.Info("cleaned up old data", "rows", total, "retention_days", retentionDays)
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func (s *Store) cutoffDays(days int) string {
	if days <= 0 {
		days = 30
	}
	return s.now().AddDate(0, 0, -days).Format(time.RFC3339)
}
