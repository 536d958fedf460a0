// Package mqtt publishes rover events to a broker and accepts commands from
// it, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

// Topic is the MQTT topic for control events.
const Topic = "rover/bench/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "rover/bench/system"

// TopicCommand carries command lines to the rover.
const TopicCommand = "rover/bench/command"

// TopicResponse carries the rover's replies to commands.
const TopicResponse = "rover/bench/response"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a control event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Messenger is the raw pub/sub surface the command channel needs.
type Messenger interface {
	ConnectionStatus
	// Subscribe registers handler for topic. The subscription survives
	// reconnects.
	Subscribe(topic string, handler func(payload []byte)) error
	// PublishRaw sends payload to topic at QoS 0, buffering it while
	// disconnected.
	PublishRaw(topic string, payload []byte) error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Rover RoverPayload `json:"rover"`
}

// RoverPayload contains the control event details.
type RoverPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	// Millis is the control loop clock at the event.
	Millis     uint32 `json:"millis"`
	DistanceCM *int   `json:"distance_cm,omitempty"`
}

// FormatPayload creates the JSON payload for a control event observed at
// wall time at.
func FormatPayload(event logic.Event, at time.Time) ([]byte, error) {
	payload := Payload{
		Rover: RoverPayload{
			Timestamp: at.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Millis:    uint32(event.Time),
		},
	}
	switch event.Type {
	case logic.EventObstacle, logic.EventSensorFault, logic.EventSensorRecovered:
		d := event.Distance
		payload.Rover.DistanceCM = &d
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

// WillPayload is the retained last-will message the broker publishes if the
// rover drops off without a clean shutdown.
func WillPayload() string {
	return `{"system":{"event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`
}
