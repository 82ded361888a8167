package evohome

import (
	"time"

	"github.com/sweeney/evohome-monitor/internal/logic"
)

// Wire shapes for the Total Connect Comfort EMEA v1 API. Only the fields we
// read are declared; the vendor payloads carry much more.

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type userAccount struct {
	UserID string `json:"userId"`
}

type installationLocation struct {
	LocationInfo struct {
		LocationID string `json:"locationId"`
		Name       string `json:"name"`
	} `json:"locationInfo"`
	Gateways []struct {
		TemperatureControlSystems []struct {
			SystemID string `json:"systemId"`
		} `json:"temperatureControlSystems"`
	} `json:"gateways"`
}

type locationStatus struct {
	Gateways []struct {
		TemperatureControlSystems []struct {
			SystemID         string `json:"systemId"`
			SystemModeStatus struct {
				Mode string `json:"mode"`
			} `json:"systemModeStatus"`
			Zones []zoneStatus `json:"zones"`
		} `json:"temperatureControlSystems"`
	} `json:"gateways"`
}

type zoneStatus struct {
	ZoneID            string `json:"zoneId"`
	Name              string `json:"name"`
	TemperatureStatus struct {
		Temperature float64 `json:"temperature"`
		IsAvailable bool    `json:"isAvailable"`
	} `json:"temperatureStatus"`
	SetpointStatus struct {
		TargetHeatTemperature float64 `json:"targetHeatTemperature"`
		SetpointMode          string  `json:"setpointMode"`
		Until                 string  `json:"until"`
	} `json:"setpointStatus"`
	ActiveFaults []struct {
		FaultType string `json:"faultType"`
	} `json:"activeFaults"`
}

type zoneSchedule struct {
	DailySchedules []struct {
		DayOfWeek    string `json:"dayOfWeek"`
		Switchpoints []struct {
			HeatSetpoint float64 `json:"heatSetpoint"`
			TimeOfDay    string  `json:"timeOfDay"`
		} `json:"switchpoints"`
	} `json:"dailySchedules"`
}

// toSnapshot converts a location status payload into the internal snapshot
// model. Zones reporting unavailable carry a nil CurrentTemp.
func (ls *locationStatus) toSnapshot(now time.Time) logic.SystemSnapshot {
	snap := logic.SystemSnapshot{
		CapturedAt: now,
		Zones:      make(map[string]logic.ZoneSnapshot),
	}
	for _, gw := range ls.Gateways {
		for _, tcs := range gw.TemperatureControlSystems {
			if snap.SystemMode == "" {
				snap.SystemMode = tcs.SystemModeStatus.Mode
			}
			for _, z := range tcs.Zones {
				snap.Zones[z.ZoneID] = z.toZone(now)
			}
		}
	}
	return snap
}

func (z zoneStatus) toZone(now time.Time) logic.ZoneSnapshot {
	zs := logic.ZoneSnapshot{
		ZoneID:       z.ZoneID,
		Name:         z.Name,
		TargetTemp:   z.SetpointStatus.TargetHeatTemperature,
		SetpointMode: logic.SetpointMode(z.SetpointStatus.SetpointMode),
		ObservedAt:   now,
	}
	if z.TemperatureStatus.IsAvailable {
		zs.CurrentTemp = logic.Float64(z.TemperatureStatus.Temperature)
	}
	if z.SetpointStatus.Until != "" {
		if until, err := time.Parse(time.RFC3339, z.SetpointStatus.Until); err == nil {
			zs.Until = &until
		}
	}
	for _, f := range z.ActiveFaults {
		zs.ActiveFaults = append(zs.ActiveFaults, f.FaultType)
	}
	return zs
}

func (s *zoneSchedule) toWeekly() logic.WeeklySchedule {
	var weekly logic.WeeklySchedule
	for _, day := range s.DailySchedules {
		ds := logic.DaySchedule{DayOfWeek: day.DayOfWeek}
		for _, sp := range day.Switchpoints {
			ds.Switchpoints = append(ds.Switchpoints, logic.Switchpoint{
				TimeOfDay:    sp.TimeOfDay,
				HeatSetpoint: sp.HeatSetpoint,
			})
		}
		weekly.DailySchedules = append(weekly.DailySchedules, ds)
	}
	return weekly
}
