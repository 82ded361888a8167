package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/evohome-monitor/internal/logic"
	"github.com/sweeney/evohome-monitor/internal/store"
)

func exportFixture() []store.EventRecord {
	return []store.EventRecord{
		{
			Timestamp:    time.Date(2026, 2, 1, 14, 30, 0, 0, time.UTC),
			ZoneID:       "z1",
			ZoneName:     "Kitchen",
			EventType:    store.EventTypeStart,
			PrevMode:     "FollowSchedule",
			NewMode:      "TemporaryOverride",
			PrevTarget:   logic.Float64(18.0),
			NewTarget:    logic.Float64(35.0),
			OverrideType: "firmware_35c",
			Confidence:   logic.Float64(0.9),
			IsSuspicious: true,
			Notes:        "Target is 35°C - known firmware bug value",
		},
		{
			Timestamp:    time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC),
			ZoneID:       "z1",
			ZoneName:     "Kitchen",
			EventType:    store.EventTypeCleared,
			PrevMode:     "TemporaryOverride",
			NewMode:      "FollowSchedule",
			PrevTarget:   logic.Float64(35.0),
			NewTarget:    logic.Float64(18.0),
			DurationMins: logic.Int(30),
		},
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := exportJSON(path, 30, exportFixture()); err != nil {
		t.Fatalf("exportJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.EventCount != 2 || len(doc.Events) != 2 {
		t.Errorf("event count = %d / %d, want 2", doc.EventCount, len(doc.Events))
	}
	if doc.Events[0].OverrideType != "firmware_35c" {
		t.Errorf("override type = %q", doc.Events[0].OverrideType)
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.xlsx")
	if err := exportXLSX(path, 30, exportFixture()); err != nil {
		t.Fatalf("exportXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open exported file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("events")
	if err != nil {
		t.Fatal(err)
	}
	// Header plus one row per event.
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Timestamp" || rows[0][8] != "Classification" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Kitchen" || rows[1][8] != "firmware_35c" {
		t.Errorf("first event row = %v", rows[1])
	}
}

func TestBar(t *testing.T) {
	if got := bar(10, 10, 30); len([]rune(got)) != 30 {
		t.Errorf("full bar length = %d, want 30", len([]rune(got)))
	}
	if got := bar(0, 10, 30); got != "" {
		t.Errorf("zero bar = %q", got)
	}
	if got := bar(5, 0, 30); got != "" {
		t.Errorf("bar with zero max = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Living Room", 25); got != "Living Room" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("A very long zone name indeed", 10); got != "A very ..." {
		t.Errorf("truncate long = %q", got)
	}
}
