// Package mqtt publishes override and lifecycle events to a broker, with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/evohome-monitor/internal/logic"
)

// TopicEvents is the MQTT topic for override events.
const TopicEvents = "home/evohome/monitor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/evohome/monitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishOverride sends an override start event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishOverride(event logic.OverrideEvent) error

	// PublishCleared sends an override cleared event to the broker.
	PublishCleared(event logic.ClearedOverrideEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN", "POLL_FAILURE"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
}

// Payload is the MQTT message envelope for override events.
type Payload struct {
	Override OverridePayload `json:"override"`
}

// OverridePayload contains the override event details.
type OverridePayload struct {
	Timestamp    string   `json:"timestamp"`
	Event        string   `json:"event"`
	ZoneID       string   `json:"zone_id"`
	ZoneName     string   `json:"zone_name"`
	PrevMode     string   `json:"previous_mode"`
	NewMode      string   `json:"new_mode"`
	PrevTarget   float64  `json:"previous_target"`
	NewTarget    float64  `json:"new_target"`
	OverrideType string   `json:"override_type,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
	IsSuspicious bool     `json:"is_suspicious"`
	DurationMins *int     `json:"duration_mins,omitempty"`
	CurrentTemp  *float64 `json:"current_temp,omitempty"`
}

// FormatOverridePayload creates the JSON payload for an override start.
func FormatOverridePayload(event logic.OverrideEvent) ([]byte, error) {
	payload := Payload{
		Override: OverridePayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        "OVERRIDE_START",
			ZoneID:       event.ZoneID,
			ZoneName:     event.ZoneName,
			PrevMode:     string(event.PrevMode),
			NewMode:      string(event.NewMode),
			PrevTarget:   event.PrevTarget,
			NewTarget:    event.NewTarget,
			OverrideType: string(event.Classification.Type),
			Confidence:   event.Classification.Confidence,
			IsSuspicious: event.IsSuspicious,
			CurrentTemp:  event.CurrentTemp,
		},
	}
	return json.Marshal(payload)
}

// FormatClearedPayload creates the JSON payload for an override clear.
func FormatClearedPayload(event logic.ClearedOverrideEvent) ([]byte, error) {
	payload := Payload{
		Override: OverridePayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        "OVERRIDE_CLEARED",
			ZoneID:       event.ZoneID,
			ZoneName:     event.ZoneName,
			PrevMode:     string(event.PrevMode),
			NewMode:      string(logic.FollowSchedule),
			PrevTarget:   event.PrevTarget,
			NewTarget:    event.NewTarget,
			DurationMins: event.DurationMins,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message envelope for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
