// Package logic contains the pure power-sequencing state machine.
// This package has NO hardware dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via Input.Time.
package logic

import (
	"time"

	"github.com/sweeney/amp-ircontrol/internal/remote"
)

// State represents the logical level of a sensed power rail.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Command is a request understood by the state machine.
type Command string

const (
	CmdAmpOn       Command = "AMP_ON"
	CmdAmpOff      Command = "AMP_OFF"
	CmdAmpOffDelay Command = "AMP_OFF_DELAY"
	CmdVolumeUp    Command = "VOLUME_UP"
	CmdVolumeDown  Command = "VOLUME_DOWN"
	CmdMute        Command = "MUTE"
)

// Origin identifies which input produced a command.
type Origin string

const (
	OriginSource   Origin = "source"
	OriginOffDelay Origin = "off_delay"
	OriginSerial   Origin = "serial"
	OriginRemote   Origin = "remote"
)

// ActionType is a hardware side effect requested by Step.
type ActionType string

const (
	ActionAmpOn    ActionType = "AMP_ON"
	ActionAmpOff   ActionType = "AMP_OFF"
	ActionTransmit ActionType = "TRANSMIT"
	ActionLEDOn    ActionType = "LED_ON"
	ActionLEDOff   ActionType = "LED_OFF"
)

// Action is one side effect. Actions must be executed in the order returned.
type Action struct {
	Type   ActionType
	Origin Origin
	// Address and Command are set for ActionTransmit.
	Address byte
	Command byte
}

// EventType describes something worth logging or publishing.
type EventType string

const (
	EventAmpPowerOn      EventType = "AMP_POWER_ON"
	EventAmpPowerOff     EventType = "AMP_POWER_OFF"
	EventSourceOn        EventType = "SOURCE_ON"
	EventSourceOff       EventType = "SOURCE_OFF"
	EventCommand         EventType = "COMMAND"
	EventOffDelayArmed   EventType = "OFF_DELAY_ARMED"
	EventOffDelayExpired EventType = "OFF_DELAY_EXPIRED"
	EventRemoteMalformed EventType = "REMOTE_MALFORMED"
	EventRemoteForeign   EventType = "REMOTE_FOREIGN"
	EventRemoteUnmapped  EventType = "REMOTE_UNMAPPED"
)

// Event is an observation produced by Step.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	AmpState    State
	SourceState State
	// Command and Origin are set for EventCommand.
	Command Command
	Origin  Origin
	// Frame is set for remote events.
	Frame *remote.Frame
}

// Input is one loop iteration's worth of sampled inputs.
type Input struct {
	Time   time.Time
	Amp    bool // amplifier power sensed ON
	Source bool // source power sensed ON
	Serial int  // raw serial byte, or -1 when none
	Frame  *remote.Frame
}

// Output is what one Step asks the loop to do and report.
type Output struct {
	Actions []Action
	Events  []Event
}

// Counts tracks requests and frames since startup.
type Counts struct {
	AmpOn     int
	AmpOff    int
	OffDelay  int
	Transmits int
	Serial    int
	Remote    int
	Malformed int
	Foreign   int
	Unmapped  int
}

// Config holds the fixed thresholds and code tables.
type Config struct {
	// OffDelay is the grace period between source power loss and amp off.
	OffDelay time.Duration
	// LEDWindow is how long the indicator stays on after remote activity.
	LEDWindow time.Duration

	// RemoteAddress is the address our remote control transmits on.
	RemoteAddress    uint8
	RemoteVolumeUp   uint8
	RemoteVolumeDown uint8
	RemoteMute       uint8

	// NEC codes sent to the source device.
	NECAddress    byte
	NECVolumeUp   byte
	NECVolumeDown byte
	NECMute       byte
}

// DefaultConfig returns the stock thresholds and codes.
func DefaultConfig() Config {
	return Config{
		OffDelay:         3 * time.Second,
		LEDWindow:        5 * time.Second,
		RemoteAddress:    16,
		RemoteVolumeUp:   16,
		RemoteVolumeDown: 17,
		RemoteMute:       13,
		NECAddress:       0x11,
		NECVolumeUp:      0x62,
		NECVolumeDown:    0x61,
		NECMute:          0x60,
	}
}
