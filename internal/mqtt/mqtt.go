// Package mqtt provides MQTT publishing and command intake with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/amp-ircontrol/internal/logic"
)

// Topic is the MQTT topic for amplifier events.
const Topic = "audio/amp/ircontrol/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "audio/amp/ircontrol/system"

// TopicCommand carries raw command bytes, handled as if received on the serial link.
const TopicCommand = "audio/amp/ircontrol/command"

// TopicRemote carries decoded remote frames as JSON.
const TopicRemote = "audio/amp/ircontrol/remote"

// newEventID is swapped in tests for deterministic payloads.
var newEventID = uuid.NewString

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an amplifier event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers message payloads for a topic to a handler.
// Handlers run on the client's goroutine and must not block.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
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

// Payload represents the MQTT message payload structure.
type Payload struct {
	Amp AmpPayload `json:"amp"`
}

// AmpPayload contains the amplifier event details.
type AmpPayload struct {
	EventID   string       `json:"event_id"`
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	Power     RailState    `json:"power"`
	Source    RailState    `json:"source"`
	Command   string       `json:"command,omitempty"`
	Origin    string       `json:"origin,omitempty"`
	Remote    *RemoteFrame `json:"remote,omitempty"`
}

// RailState represents a single sensed rail.
type RailState struct {
	State string `json:"state"`
}

// RemoteFrame echoes the remote frame behind a remote event.
type RemoteFrame struct {
	StartBits uint8 `json:"start_bits"`
	Address   uint8 `json:"address"`
	Command   uint8 `json:"command"`
	Toggle    bool  `json:"toggle"`
}

// FormatPayload creates the JSON payload for an amplifier event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Amp: AmpPayload{
			EventID:   newEventID(),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Power:     RailState{State: string(event.AmpState)},
			Source:    RailState{State: string(event.SourceState)},
			Command:   string(event.Command),
			Origin:    string(event.Origin),
		},
	}
	if f := event.Frame; f != nil {
		payload.Amp.Remote = &RemoteFrame{
			StartBits: f.StartBits,
			Address:   f.Address,
			Command:   f.Command,
			Toggle:    f.Toggle,
		}
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
	EventID   string `json:"event_id"`
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
			EventID:   newEventID(),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
