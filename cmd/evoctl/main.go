// Command evoctl queries the forensic database from the command line.
//
// Usage:
//
//	evoctl                      Show help
//	evoctl events               Recent override events
//	evoctl events --zone Kitchen
//	evoctl stats                Statistics summary
//	evoctl zones                Zones ranked by override frequency
//	evoctl hours                Hourly override distribution
//	evoctl export events.xlsx   Export events to JSON or XLSX
package main

import (
	"fmt"
	"os"
)

const usage = `evoctl — Evohome monitor forensics CLI

Usage:
  evoctl <command> [flags]

Commands:
  events      Show recent override events
  stats       Statistics summary by classification
  zones       Zones ranked by override frequency
  hours       Hourly distribution of overrides
  export      Export events to a JSON or XLSX file

Environment:
  EVOHOME_DB  Path to the forensic database
              (default: data/evohome_forensics.db)

Run 'evoctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "events":
		runEvents()
	case "stats":
		runStats()
	case "zones":
		runZones()
	case "hours":
		runHours()
	case "export":
		runExport()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "evoctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
