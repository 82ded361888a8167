package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/evohome-monitor/internal/status"
	"github.com/sweeney/evohome-monitor/internal/store"
)

var tmplFuncs = template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"temp": func(v *float64) string {
		if v == nil {
			return "--"
		}
		return fmt.Sprintf("%.1f°", *v)
	},
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(tmplFuncs).Parse(dashboardHTML))
var forensicsTmpl = template.Must(template.New("forensics").Funcs(tmplFuncs).Parse(forensicsHTML))

// zoneView is one zone row on the dashboard, sorted by name.
type zoneView struct {
	Name         string
	CurrentTemp  *float64
	TargetTemp   float64
	SetpointMode string
	IsOverride   bool
	IsAvailable  bool
}

// overrideView is one active override row.
type overrideView struct {
	Name   string
	Mode   string
	Target float64
	Since  string
}

// eventView is one recent event row.
type eventView struct {
	Time       string
	ZoneName   string
	EventType  string
	PrevTarget string
	NewTarget  string
	Type       string
}

type dashboardData struct {
	SystemMode      string
	LastUpdate      string
	HasState        bool
	Zones           []zoneView
	ActiveOverrides []overrideView
	RecentEvents    []eventView
	Uptime          time.Duration
	MQTTConnected   bool
	LastError       string
}

func renderDashboard(w io.Writer, snap status.Snapshot, recent []store.EventRecord) error {
	data := dashboardData{
		SystemMode:    "Unknown",
		LastUpdate:    "Never",
		Uptime:        snap.Uptime(),
		MQTTConnected: snap.MQTTConnected,
		LastError:     snap.LastError,
	}

	if snap.System != nil {
		data.HasState = true
		data.SystemMode = snap.System.SystemMode
		data.LastUpdate = snap.System.CapturedAt.Format("15:04:05")

		for _, z := range snap.System.Zones {
			data.Zones = append(data.Zones, zoneView{
				Name:         z.Name,
				CurrentTemp:  z.CurrentTemp,
				TargetTemp:   z.TargetTemp,
				SetpointMode: string(z.SetpointMode),
				IsOverride:   z.IsOverride(),
				IsAvailable:  z.IsAvailable(),
			})
			if z.IsOverride() {
				since := "-"
				if start, ok := snap.ActiveOverrides[z.ZoneID]; ok {
					since = start.Format("15:04")
				}
				data.ActiveOverrides = append(data.ActiveOverrides, overrideView{
					Name:   z.Name,
					Mode:   string(z.SetpointMode),
					Target: z.TargetTemp,
					Since:  since,
				})
			}
		}
		sort.Slice(data.Zones, func(i, j int) bool { return data.Zones[i].Name < data.Zones[j].Name })
		sort.Slice(data.ActiveOverrides, func(i, j int) bool {
			return data.ActiveOverrides[i].Name < data.ActiveOverrides[j].Name
		})
	}

	for _, e := range recent {
		ev := eventView{
			Time:      e.Timestamp.Format("15:04"),
			ZoneName:  e.ZoneName,
			EventType: e.EventType,
			Type:      e.OverrideType,
		}
		if e.PrevTarget != nil {
			ev.PrevTarget = fmt.Sprintf("%.1f°", *e.PrevTarget)
		}
		if e.NewTarget != nil {
			ev.NewTarget = fmt.Sprintf("%.1f°", *e.NewTarget)
		}
		data.RecentEvents = append(data.RecentEvents, ev)
	}

	return dashboardTmpl.Execute(w, data)
}

// freqView is a zone frequency row with a bar percentage.
type freqView struct {
	ZoneName        string
	OverrideCount   int
	SuspiciousCount int
	Percent         float64
}

// hourView is an hourly distribution row with a bar percentage.
type hourView struct {
	Hour    int
	Count   int
	Percent float64
}

type forensicsData struct {
	Days             int
	TotalOverrides   int
	TotalSuspicious  int
	MostProblematic  string
	PeakHour         int
	ZoneFrequency    []freqView
	TimeDistribution []hourView
	TypeDistribution []store.TypeCount
}

func renderForensics(w io.Writer, diag store.DiagnosticsSummary, days int) error {
	data := forensicsData{
		Days:             days,
		TotalOverrides:   diag.TotalOverrides,
		TotalSuspicious:  diag.TotalSuspicious,
		MostProblematic:  "-",
		TypeDistribution: diag.TypeDistribution,
	}

	maxCount := 1
	for _, z := range diag.ZoneFrequency {
		if z.OverrideCount > maxCount {
			maxCount = z.OverrideCount
		}
	}
	for _, z := range diag.ZoneFrequency {
		data.ZoneFrequency = append(data.ZoneFrequency, freqView{
			ZoneName:        z.ZoneName,
			OverrideCount:   z.OverrideCount,
			SuspiciousCount: z.SuspiciousCount,
			Percent:         float64(z.OverrideCount) / float64(maxCount) * 100,
		})
	}
	if len(diag.ZoneFrequency) > 0 {
		data.MostProblematic = diag.ZoneFrequency[0].ZoneName
	}

	maxCount = 1
	peak := 0
	peakHour := 0
	for _, h := range diag.TimeDistribution {
		if h.Count > maxCount {
			maxCount = h.Count
		}
		if h.Count > peak {
			peak = h.Count
			peakHour = h.Hour
		}
	}
	for _, h := range diag.TimeDistribution {
		data.TimeDistribution = append(data.TimeDistribution, hourView{
			Hour:    h.Hour,
			Count:   h.Count,
			Percent: float64(h.Count) / float64(maxCount) * 100,
		})
	}
	data.PeakHour = peakHour

	return forensicsTmpl.Execute(w, data)
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="60">
<title>Evohome Monitor</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.override { color: #c00; font-weight: bold; }
.schedule { color: green; }
.unavailable { color: orange; }
.muted { color: #888; }
.error { color: #c00; }
nav a { margin-right: 1em; }
</style>
</head>
<body>
<h1>Evohome Monitor</h1>
<nav><a href="/forensics">Forensics</a><a href="/api/state">API: State</a><a href="/api/events">API: Events</a></nav>

<table>
<tr><th>System Mode</th><td>{{.SystemMode}}</td></tr>
<tr><th>Last Update</th><td>{{.LastUpdate}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td>{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .LastError}}<tr><th>Last Error</th><td class="error">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Zones</h2>
{{if .Zones}}
<table>
<tr><th>Zone</th><th>Current</th><th>Target</th><th>Mode</th></tr>
{{range .Zones}}
<tr>
<td>{{.Name}}</td>
<td{{if not .IsAvailable}} class="unavailable"{{end}}>{{temp .CurrentTemp}}</td>
<td>{{printf "%.1f°" .TargetTemp}}</td>
<td class="{{if .IsOverride}}override{{else}}schedule{{end}}">{{.SetpointMode}}</td>
</tr>
{{end}}
</table>
{{else}}<p class="muted">No state yet — waiting for first poll.</p>{{end}}

{{if .ActiveOverrides}}
<h2>Active Overrides</h2>
<table>
<tr><th>Zone</th><th>Type</th><th>Target</th><th>Since</th></tr>
{{range .ActiveOverrides}}
<tr><td>{{.Name}}</td><td>{{.Mode}}</td><td>{{printf "%.1f" .Target}}°C</td><td>{{.Since}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Recent Events (last 24h)</h2>
{{if .RecentEvents}}
<table>
<tr><th>Time</th><th>Zone</th><th>Event</th><th>Change</th><th>Classification</th></tr>
{{range .RecentEvents}}
<tr><td>{{.Time}}</td><td>{{.ZoneName}}</td><td>{{.EventType}}</td><td>{{.PrevTarget}} → {{.NewTarget}}</td><td>{{if .Type}}{{.Type}}{{else}}-{{end}}</td></tr>
{{end}}
</table>
{{else}}<p class="muted">No events in the last 24 hours.</p>{{end}}
</body>
</html>
`

const forensicsHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Evohome Monitor — Forensics</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.bar { background: #4dabf7; height: 10px; display: inline-block; }
.muted { color: #888; }
nav a { margin-right: 1em; }
</style>
</head>
<body>
<h1>Forensic Analysis (last {{.Days}} days)</h1>
<nav><a href="/">Dashboard</a><a href="/api/diagnostics">API: Diagnostics</a></nav>

<table>
<tr><th>Total Overrides</th><td>{{.TotalOverrides}}</td></tr>
<tr><th>Suspicious</th><td>{{.TotalSuspicious}}</td></tr>
<tr><th>Most Problematic Zone</th><td>{{.MostProblematic}}</td></tr>
<tr><th>Peak Hour</th><td>{{printf "%02d:00" .PeakHour}}</td></tr>
</table>

<h2>Overrides by Zone</h2>
{{if .ZoneFrequency}}
<table>
<tr><th>Zone</th><th>Count</th><th>Suspicious</th><th></th></tr>
{{range .ZoneFrequency}}
<tr><td>{{.ZoneName}}</td><td>{{.OverrideCount}}</td><td>{{.SuspiciousCount}}</td><td><span class="bar" style="width: {{printf "%.0f" .Percent}}px"></span></td></tr>
{{end}}
</table>
{{else}}<p class="muted">No overrides recorded.</p>{{end}}

<h2>Overrides by Hour of Day</h2>
{{if .TimeDistribution}}
<table>
<tr><th>Hour</th><th>Count</th><th></th></tr>
{{range .TimeDistribution}}
<tr><td>{{printf "%02d:00" .Hour}}</td><td>{{.Count}}</td><td><span class="bar" style="width: {{printf "%.0f" .Percent}}px"></span></td></tr>
{{end}}
</table>
{{else}}<p class="muted">No overrides recorded.</p>{{end}}

<h2>Override Types</h2>
{{if .TypeDistribution}}
<table>
<tr><th>Type</th><th>Count</th><th>Avg Confidence</th></tr>
{{range .TypeDistribution}}
<tr><td>{{.OverrideType}}</td><td>{{.Count}}</td><td>{{printf "%.2f" .AvgConfidence}}</td></tr>
{{end}}
</table>
{{else}}<p class="muted">No classified overrides.</p>{{end}}
</body>
</html>
`
