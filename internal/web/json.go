package web

import (
	"time"

	"github.com/sweeney/evohome-monitor/internal/status"
)

// StateJSON is the JSON representation of the current system state.
type StateJSON struct {
	Timestamp  string              `json:"timestamp"`
	SystemMode string              `json:"system_mode"`
	Zones      map[string]ZoneJSON `json:"zones"`
}

// ZoneJSON is the JSON representation of one zone.
type ZoneJSON struct {
	Name         string   `json:"name"`
	CurrentTemp  *float64 `json:"current_temp"`
	TargetTemp   float64  `json:"target_temp"`
	SetpointMode string   `json:"setpoint_mode"`
	IsOverride   bool     `json:"is_override"`
	IsAvailable  bool     `json:"is_available"`
}

// HealthJSON is the health check response.
type HealthJSON struct {
	Status     string  `json:"status"`
	HasState   bool    `json:"has_state"`
	LastUpdate *string `json:"last_update"`
	Polls      int     `json:"polls"`
	PollErrors int     `json:"poll_errors"`
	UptimeSecs int64   `json:"uptime_seconds"`
}

func buildStateJSON(snap status.Snapshot) StateJSON {
	state := StateJSON{
		Timestamp:  snap.System.CapturedAt.Format(time.RFC3339),
		SystemMode: snap.System.SystemMode,
		Zones:      make(map[string]ZoneJSON, len(snap.System.Zones)),
	}
	for id, z := range snap.System.Zones {
		state.Zones[id] = ZoneJSON{
			Name:         z.Name,
			CurrentTemp:  z.CurrentTemp,
			TargetTemp:   z.TargetTemp,
			SetpointMode: string(z.SetpointMode),
			IsOverride:   z.IsOverride(),
			IsAvailable:  z.IsAvailable(),
		}
	}
	return state
}

func buildHealthJSON(snap status.Snapshot) HealthJSON {
	health := HealthJSON{
		Status:     "healthy",
		HasState:   snap.System != nil,
		Polls:      snap.Counts.Polls,
		PollErrors: snap.Counts.Errors,
		UptimeSecs: int64(snap.Uptime().Truncate(time.Second).Seconds()),
	}
	if snap.System != nil {
		ts := snap.System.CapturedAt.Format(time.RFC3339)
		health.LastUpdate = &ts
	}
	return health
}
