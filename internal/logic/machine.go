package logic

import (
	"time"

	"github.com/sweeney/amp-ircontrol/internal/remote"
)

// Machine arbitrates power-rail edges, serial commands and remote frames.
// Its whole state is the previous rail levels plus two countdowns.
type Machine struct {
	cfg        Config
	prevAmp    bool
	prevSource bool
	offDelay   Countdown
	led        Countdown
	counts     Counts
}

// NewMachine creates a machine. Both rails start as OFF, so a rail that is
// already on at startup is reported (and acted on) by the first Step.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Step runs one loop iteration. Inputs are handled in a fixed order:
// amp observation, source edges, off-delay expiry, serial, LED expiry, remote.
func (m *Machine) Step(in Input) Output {
	var out Output
	now := in.Time

	if in.Amp != m.prevAmp {
		m.prevAmp = in.Amp
		typ := EventAmpPowerOff
		if in.Amp {
			typ = EventAmpPowerOn
		}
		m.emit(&out, now, Event{Type: typ})
	}

	if in.Source != m.prevSource {
		m.prevSource = in.Source
		if in.Source {
			m.emit(&out, now, Event{Type: EventSourceOn})
			m.dispatch(&out, now, CmdAmpOn, OriginSource)
		} else {
			m.emit(&out, now, Event{Type: EventSourceOff})
			m.dispatch(&out, now, CmdAmpOffDelay, OriginSource)
		}
	}

	if m.offDelay.Expired(now) {
		m.emit(&out, now, Event{Type: EventOffDelayExpired})
		m.dispatch(&out, now, CmdAmpOff, OriginOffDelay)
	}

	if cmd, ok := ParseSerial(in.Serial); ok {
		m.counts.Serial++
		m.dispatch(&out, now, cmd, OriginSerial)
	}

	if m.led.Expired(now) {
		m.led.Stop()
		out.Actions = append(out.Actions, Action{Type: ActionLEDOff, Origin: OriginRemote})
	}

	if in.Frame != nil {
		m.handleFrame(&out, now, *in.Frame)
	}

	return out
}

func (m *Machine) handleFrame(out *Output, now time.Time, f remote.Frame) {
	m.counts.Remote++
	switch {
	case !f.Valid():
		m.counts.Malformed++
		m.emit(out, now, Event{Type: EventRemoteMalformed, Frame: &f})
	case f.Address != m.cfg.RemoteAddress:
		m.counts.Foreign++
		m.emit(out, now, Event{Type: EventRemoteForeign, Frame: &f})
	default:
		out.Actions = append(out.Actions, Action{Type: ActionLEDOn, Origin: OriginRemote})
		m.led.Arm(now, m.cfg.LEDWindow)
		if cmd, ok := m.cfg.remoteCommand(f.Command); ok {
			m.dispatch(out, now, cmd, OriginRemote)
			return
		}
		m.counts.Unmapped++
		m.emit(out, now, Event{Type: EventRemoteUnmapped, Frame: &f})
	}
}

// dispatch turns a command into actions. Amp on/off requests always cancel
// a pending off-delay, even if the amplifier turns out to be in that state.
func (m *Machine) dispatch(out *Output, now time.Time, cmd Command, origin Origin) {
	m.emit(out, now, Event{Type: EventCommand, Command: cmd, Origin: origin})

	switch cmd {
	case CmdAmpOn:
		m.offDelay.Stop()
		m.counts.AmpOn++
		out.Actions = append(out.Actions, Action{Type: ActionAmpOn, Origin: origin})
	case CmdAmpOff:
		m.offDelay.Stop()
		m.counts.AmpOff++
		out.Actions = append(out.Actions, Action{Type: ActionAmpOff, Origin: origin})
	case CmdAmpOffDelay:
		m.offDelay.Arm(now, m.cfg.OffDelay)
		m.counts.OffDelay++
		m.emit(out, now, Event{Type: EventOffDelayArmed, Origin: origin})
	default:
		code, ok := m.cfg.necCode(cmd)
		if !ok {
			return
		}
		m.counts.Transmits++
		out.Actions = append(out.Actions, Action{
			Type:    ActionTransmit,
			Origin:  origin,
			Address: m.cfg.NECAddress,
			Command: code,
		})
	}
}

func (m *Machine) emit(out *Output, now time.Time, e Event) {
	e.Timestamp = now
	e.AmpState = boolToState(m.prevAmp)
	e.SourceState = boolToState(m.prevSource)
	out.Events = append(out.Events, e)
}

// CurrentState returns the last sampled rail levels.
func (m *Machine) CurrentState() (amp State, source State) {
	return boolToState(m.prevAmp), boolToState(m.prevSource)
}

// OffDelayRemaining returns the time until a pending delayed off fires,
// or 0 if none is pending.
func (m *Machine) OffDelayRemaining(now time.Time) time.Duration {
	return m.offDelay.Remaining(now)
}

// OffDelayPending reports whether a delayed off is armed.
func (m *Machine) OffDelayPending() bool {
	return m.offDelay.Running()
}

// LEDActive reports whether the remote activity window is open.
func (m *Machine) LEDActive() bool {
	return m.led.Running()
}

// Counts returns a copy of the request counters.
func (m *Machine) Counts() Counts {
	return m.counts
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}
