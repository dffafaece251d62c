// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/lamp-monitor/internal/logic"
)

// Topic is the MQTT topic for lamp state-change events.
const Topic = "factory/lamp-monitor/events"

// TopicAlarms is the MQTT topic for alarm dispatch outcomes.
const TopicAlarms = "factory/lamp-monitor/alarms"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "factory/lamp-monitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a lamp state-change event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishAlarm sends an alarm dispatch outcome to the broker.
	PublishAlarm(alarm AlarmMessage) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// AlarmMessage describes the outcome of one alert dispatch attempt.
type AlarmMessage struct {
	Timestamp time.Time
	BatchID   string
	LampIDs   []int
	Delivered bool
	Error     string // empty when delivered
}

// Payload represents the MQTT message payload for a state change.
type Payload struct {
	Lamp LampPayload `json:"lamp"`
}

// LampPayload contains the state-change details.
type LampPayload struct {
	Timestamp     string  `json:"timestamp"`
	Event         string  `json:"event"`
	LampID        int     `json:"lamp_id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Confidence    float64 `json:"confidence"`
	MajorityRatio float64 `json:"majority_ratio"`
}

// FormatPayload creates the JSON payload for a state-change event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Lamp: LampPayload{
			Timestamp:     event.Timestamp.UTC().Format(time.RFC3339),
			Event:         "STATE_CHANGED",
			LampID:        event.LampID,
			From:          string(event.OldLabel),
			To:            string(event.NewLabel),
			Confidence:    event.Confidence,
			MajorityRatio: event.MajorityRatio,
		},
	}
	return json.Marshal(payload)
}

// AlarmPayload represents the MQTT message payload for a dispatch outcome.
type AlarmPayload struct {
	Alarm AlarmPayloadInner `json:"alarm"`
}

// AlarmPayloadInner contains the dispatch outcome details.
type AlarmPayloadInner struct {
	Timestamp string `json:"timestamp"`
	BatchID   string `json:"batch_id"`
	LampIDs   []int  `json:"lamp_ids"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// FormatAlarmPayload creates the JSON payload for a dispatch outcome.
func FormatAlarmPayload(alarm AlarmMessage) ([]byte, error) {
	payload := AlarmPayload{
		Alarm: AlarmPayloadInner{
			Timestamp: alarm.Timestamp.UTC().Format(time.RFC3339),
			BatchID:   alarm.BatchID,
			LampIDs:   alarm.LampIDs,
			Delivered: alarm.Delivered,
			Error:     alarm.Error,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
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
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
