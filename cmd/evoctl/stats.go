package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	days := fs.Int("days", 30, "Days to analyze")
	fs.Parse(os.Args[1:])

	st := openDB()
	defer st.Close()

	summary, err := st.Diagnostics(*days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 50))
	fmt.Printf("EVOHOME OVERRIDE STATISTICS (Last %d days)\n", *days)
	fmt.Printf("%s\n", strings.Repeat("=", 50))

	fmt.Printf("\nTotal overrides:     %d\n", summary.TotalOverrides)
	fmt.Printf("Suspicious events:   %d\n", summary.TotalSuspicious)

	if len(summary.ZoneFrequency) > 0 {
		worst := summary.ZoneFrequency[0]
		fmt.Printf("Most affected zone:  %s (%d overrides)\n", worst.ZoneName, worst.OverrideCount)
	}

	if len(summary.TypeDistribution) > 0 {
		fmt.Println("\nBy classification:")
		for _, t := range summary.TypeDistribution {
			fmt.Printf("  %-25s %4d (%.0f%% avg confidence)\n",
				t.OverrideType, t.Count, t.AvgConfidence*100)
		}
	}
}

func runZones() {
	fs := flag.NewFlagSet("zones", flag.ExitOnError)
	days := fs.Int("days", 30, "Days to analyze")
	fs.Parse(os.Args[1:])

	st := openDB()
	defer st.Close()

	zones, err := st.OverrideFrequency(*days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(zones) == 0 {
		fmt.Println("No override data found.")
		return
	}

	fmt.Printf("\n%-25s %-12s %-12s %s\n", "Zone", "Overrides", "Suspicious", "Bar")
	fmt.Println(strings.Repeat("-", 70))

	max := zones[0].OverrideCount
	for _, z := range zones {
		susp := ""
		if z.SuspiciousCount > 0 {
			susp = fmt.Sprintf("(%d)", z.SuspiciousCount)
		}
		fmt.Printf("%-25s %-12d %-12s %s\n",
			truncate(z.ZoneName, 25), z.OverrideCount, susp, bar(z.OverrideCount, max, 30))
	}
}

func runHours() {
	fs := flag.NewFlagSet("hours", flag.ExitOnError)
	days := fs.Int("days", 30, "Days to analyze")
	fs.Parse(os.Args[1:])

	st := openDB()
	defer st.Close()

	hours, err := st.HourlyDistribution(*days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(hours) == 0 {
		fmt.Println("No override data found.")
		return
	}

	counts := make(map[int]int, len(hours))
	max := 0
	for _, h := range hours {
		counts[h.Hour] = h.Count
		if h.Count > max {
			max = h.Count
		}
	}

	fmt.Printf("\nOverride distribution by hour (last %d days):\n\n", *days)
	for hour := 0; hour < 24; hour++ {
		count := counts[hour]
		fmt.Printf("%02d:00  %4d  %s\n", hour, count, bar(count, max, 40))
	}
}
