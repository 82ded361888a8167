package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sweeney/evohome-monitor/internal/config"
	"github.com/sweeney/evohome-monitor/internal/store"
)

// dbPath returns the forensic database path: EVOHOME_DB if set, otherwise
// the monitor's default.
func dbPath() string {
	if v := strings.TrimSpace(os.Getenv("EVOHOME_DB")); v != "" {
		return v
	}
	return config.Default().Storage.DatabasePath
}

// openDB opens the store or exits. The database must already exist; evoctl
// never creates one.
func openDB() *store.Store {
	path := dbPath()
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "error: database not found at %s\n", path)
		fmt.Fprintln(os.Stderr, "  Run the monitor first to create it, or set EVOHOME_DB.")
		os.Exit(1)
	}
	st, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open database: %v\n", err)
		os.Exit(1)
	}
	return st
}

// formatTime renders a timestamp for table output in local time.
func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// formatTemp renders an optional temperature, "-" when absent.
func formatTemp(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g°", *v)
}

// bar renders a proportional text bar of at most width characters.
func bar(count, max, width int) string {
	if max <= 0 {
		return ""
	}
	return strings.Repeat("█", count*width/max)
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
