package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sweeney/evohome-monitor/internal/store"
)

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	zone := fs.String("zone", "", "Filter by zone name (substring match)")
	overrideType := fs.String("type", "", "Filter by classification (e.g. firmware_35c)")
	suspicious := fs.Bool("suspicious", false, "Only suspicious events")
	days := fs.Int("days", 30, "Days to look back")
	limit := fs.Int("limit", 50, "Max events to show")
	fs.Parse(os.Args[1:])

	st := openDB()
	defer st.Close()

	events, err := st.Events(store.EventFilter{
		OverrideType:   *overrideType,
		Days:           *days,
		SuspiciousOnly: *suspicious,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Zone filtering is by display name, which the events table stores
	// alongside the ID; substring match mirrors how people refer to zones.
	if *zone != "" {
		needle := strings.ToLower(*zone)
		filtered := events[:0]
		for _, e := range events {
			if strings.Contains(strings.ToLower(e.ZoneName), needle) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if len(events) == 0 {
		fmt.Println("No events found matching criteria.")
		return
	}

	fmt.Printf("\n%-18s %-20s %-18s %-15s %s\n", "Time", "Zone", "Event", "Change", "Type")
	fmt.Println(strings.Repeat("-", 95))

	shown := events
	if len(shown) > *limit {
		shown = shown[:*limit]
	}
	for _, e := range shown {
		eventType := strings.ReplaceAll(e.EventType, "_", " ")
		change := fmt.Sprintf("%s → %s", formatTemp(e.PrevTarget), formatTemp(e.NewTarget))
		overrideType := e.OverrideType
		if overrideType == "" {
			overrideType = "-"
		}
		marker := ""
		if e.IsSuspicious {
			marker = "⚠️ "
		}
		fmt.Printf("%-18s %-20s %-18s %-15s %s%s\n",
			formatTime(e.Timestamp), truncate(e.ZoneName, 20), eventType, change,
			marker, overrideType)
	}

	if len(events) > *limit {
		fmt.Printf("\n... and %d more events. Use --limit to see more.\n", len(events)-*limit)
	}
	fmt.Printf("\nTotal: %d events in last %d days\n", len(events), *days)
}
