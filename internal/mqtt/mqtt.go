// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
)

// Topic is the MQTT topic for blink and preset events.
const Topic = "ledpattern/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "ledpattern/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a blink or preset event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event events.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "blinker failed" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Event EventPayload `json:"event"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp  string `json:"timestamp"`
	Actor      string `json:"actor"`
	Kind       string `json:"kind"`
	Summary    string `json:"summary"`
	Preset     int    `json:"preset"`
	State      string `json:"state,omitempty"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
}

// FormatPayload creates the JSON payload for an event.
func FormatPayload(event events.Event) ([]byte, error) {
	p := EventPayload{
		Timestamp: event.Time.UTC().Format(time.RFC3339Nano),
		Actor:     string(event.Actor),
		Kind:      string(event.Kind),
		Summary:   event.Summary(),
		Preset:    event.Index,
	}
	if event.Kind == events.KindToggle {
		p.State = events.StateString(event.On)
		p.IntervalMs = event.Interval.Milliseconds()
	}
	return json.Marshal(Payload{Event: p})
}

// SystemPayload represents the MQTT message payload for system events
// that don't carry a full status snapshot (LWT, RECONNECTED).
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

// willPayload is registered as the broker's last will: it is published on
// TopicSystem if the connection drops without a clean disconnect.
func willPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "OFFLINE", Reason: "connection lost"}})
	return data
}
