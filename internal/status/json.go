package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Amp           string       `json:"amp"`
	Source        string       `json:"source"`
	OffDelay      OffDelayJSON `json:"off_delay"`
	LED           bool         `json:"led"`
	LastEvent     string       `json:"last_event,omitempty"`
	LastEventAt   string       `json:"last_event_at,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Config        ConfigJSON   `json:"config"`
}

// OffDelayJSON reports a pending delayed off.
type OffDelayJSON struct {
	Pending     bool  `json:"pending"`
	RemainingMs int64 `json:"remaining_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of request counters.
type CountsJSON struct {
	AmpOn         int   `json:"amp_on"`
	AmpOff        int   `json:"amp_off"`
	OffDelay      int   `json:"off_delay"`
	Transmits     int   `json:"transmits"`
	Serial        int   `json:"serial"`
	Remote        int   `json:"remote"`
	Malformed     int   `json:"malformed"`
	Foreign       int   `json:"foreign"`
	Unmapped      int   `json:"unmapped"`
	SerialDropped int64 `json:"serial_dropped"`
	RemoteDropped int64 `json:"remote_dropped"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	OffDelayMs  int64  `json:"off_delay_ms"`
	LEDWindowMs int64  `json:"led_window_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	IRDevice    string `json:"ir_device,omitempty"`
	SerialPort  string `json:"serial_port,omitempty"`
}

func stateOrUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

// BuildInner converts a snapshot into its JSON shape.
func BuildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Amp:    stateOrUnknown(string(snap.Amp)),
		Source: stateOrUnknown(string(snap.Source)),
		OffDelay: OffDelayJSON{
			Pending:     snap.OffDelayPending,
			RemainingMs: snap.OffDelayRemaining.Milliseconds(),
		},
		LED:           snap.LEDActive,
		LastEvent:     string(snap.LastEvent),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			AmpOn:         snap.Counts.AmpOn,
			AmpOff:        snap.Counts.AmpOff,
			OffDelay:      snap.Counts.OffDelay,
			Transmits:     snap.Counts.Transmits,
			Serial:        snap.Counts.Serial,
			Remote:        snap.Counts.Remote,
			Malformed:     snap.Counts.Malformed,
			Foreign:       snap.Counts.Foreign,
			Unmapped:      snap.Counts.Unmapped,
			SerialDropped: snap.Dropped.Serial,
			RemoteDropped: snap.Dropped.Remote,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			OffDelayMs:  snap.Config.OffDelayMs,
			LEDWindowMs: snap.Config.LEDWindowMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			IRDevice:    snap.Config.IRDevice,
			SerialPort:  snap.Config.SerialPort,
		},
	}
	if !snap.LastEventAt.IsZero() {
		inner.LastEventAt = snap.LastEventAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: BuildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := BuildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
