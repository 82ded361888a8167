package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/evohome-monitor/internal/logic"
)

// FormatOverrideAlert renders an override event as an HTML alert message.
func FormatOverrideAlert(ev logic.OverrideEvent, dashboardURL string) string {
	marker := "🟡"
	if ev.IsSuspicious {
		marker = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Override Detected</b>\n\n", marker)
	fmt.Fprintf(&b, "Zone: %s\n", ev.ZoneName)
	fmt.Fprintf(&b, "Change: %s → %s\n", ev.PrevMode, ev.NewMode)
	fmt.Fprintf(&b, "Setpoint: %g°C → %g°C\n", ev.PrevTarget, ev.NewTarget)
	if ev.CurrentTemp != nil {
		fmt.Fprintf(&b, "Current temp: %g°C\n", *ev.CurrentTemp)
	}
	fmt.Fprintf(&b, "Time: %s", ev.Timestamp.Format("15:04:05"))

	if ev.Classification.Type != logic.OverrideUnknown {
		fmt.Fprintf(&b, "\n\nLikely cause: %s", ev.Classification.Type)
	}
	if ev.Classification.Notes != "" {
		fmt.Fprintf(&b, "\n\nNotes: %s", ev.Classification.Notes)
	}
	appendDashboardLink(&b, dashboardURL)
	return b.String()
}

// FormatClearedAlert renders a cleared-override event as an alert message.
func FormatClearedAlert(ev logic.ClearedOverrideEvent, dashboardURL string) string {
	duration := ""
	if ev.DurationMins != nil {
		duration = fmt.Sprintf(" (was active %d mins)", *ev.DurationMins)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🟢 <b>Override Cleared</b>\n\n")
	fmt.Fprintf(&b, "Zone: %s\n", ev.ZoneName)
	fmt.Fprintf(&b, "Returned to: %s\n", logic.FollowSchedule)
	fmt.Fprintf(&b, "Setpoint: %g°C → %g°C%s", ev.PrevTarget, ev.NewTarget, duration)
	appendDashboardLink(&b, dashboardURL)
	return b.String()
}

// FormatStartup renders the startup announcement.
func FormatStartup(now time.Time, pollInterval time.Duration) string {
	return fmt.Sprintf("🟢 <b>Evohome Monitor Started</b>\n\nTime: %s\nPoll interval: %s",
		now.Format("2006-01-02 15:04:05"), pollInterval)
}

// FormatShutdown renders the shutdown announcement.
func FormatShutdown(now time.Time) string {
	return fmt.Sprintf("🔴 <b>Evohome Monitor Stopped</b>\n\nTime: %s",
		now.Format("2006-01-02 15:04:05"))
}

// FormatError renders a monitoring-failure escalation.
func FormatError(now time.Time, errText string) string {
	return fmt.Sprintf("⚠️ <b>Evohome Monitor Error</b>\n\nTime: %s\nError: %s",
		now.Format("2006-01-02 15:04:05"), errText)
}

func appendDashboardLink(b *strings.Builder, url string) {
	if url != "" {
		fmt.Fprintf(b, "\n\n🔗 <a href='%s'>View Dashboard</a>", url)
	}
}
