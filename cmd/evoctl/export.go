package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/evohome-monitor/internal/store"
)

// exportDocument is the JSON export envelope.
type exportDocument struct {
	ExportedAt time.Time           `json:"exported_at"`
	Days       int                 `json:"days"`
	EventCount int                 `json:"event_count"`
	Events     []store.EventRecord `json:"events"`
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	days := fs.Int("days", 30, "Days to export")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evoctl export [flags] <output>")
		fmt.Fprintln(os.Stderr, "  <output>  Output file; .xlsx writes a spreadsheet,")
		fmt.Fprintln(os.Stderr, "            anything else JSON, '-' JSON to stdout")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	output := fs.Arg(0)

	st := openDB()
	defer st.Close()

	events, err := st.Events(store.EventFilter{Days: *days})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if strings.HasSuffix(output, ".xlsx") {
		err = exportXLSX(output, *days, events)
	} else {
		err = exportJSON(output, *days, events)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if output != "-" {
		fmt.Printf("Exported %d events to %s\n", len(events), output)
	}
}

func exportJSON(output string, days int, events []store.EventRecord) error {
	doc := exportDocument{
		ExportedAt: time.Now(),
		Days:       days,
		EventCount: len(events),
		Events:     events,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if output == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0644)
}

func exportXLSX(output string, days int, events []store.EventRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	eventsSheet := "events"
	f.SetSheetName("Sheet1", eventsSheet)

	header := []string{
		"Timestamp", "Zone", "Event", "Previous Mode", "New Mode",
		"Previous Target", "New Target", "Current Temp", "Classification",
		"Confidence", "Suspicious", "Duration (min)", "Notes",
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(eventsSheet, cell, h); err != nil {
			return err
		}
	}

	for row, e := range events {
		values := []any{
			e.Timestamp.Format(time.RFC3339),
			e.ZoneName,
			e.EventType,
			e.PrevMode,
			e.NewMode,
			optFloat(e.PrevTarget),
			optFloat(e.NewTarget),
			optFloat(e.CurrentTemp),
			e.OverrideType,
			optFloat(e.Confidence),
			e.IsSuspicious,
			optInt(e.DurationMins),
			e.Notes,
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(eventsSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(output)
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
