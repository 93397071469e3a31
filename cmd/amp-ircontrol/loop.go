package main

import (
	"os"
	"syscall"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/gpio"
	"github.com/sweeney/amp-ircontrol/internal/logger"
	"github.com/sweeney/amp-ircontrol/internal/logic"
	"github.com/sweeney/amp-ircontrol/internal/mqtt"
	"github.com/sweeney/amp-ircontrol/internal/remote"
	"github.com/sweeney/amp-ircontrol/internal/serial"
	"github.com/sweeney/amp-ircontrol/internal/status"
	"github.com/sweeney/amp-ircontrol/internal/watchdog"
)

// ampSwitch is the relay actuator. Both calls are no-ops when the sensed
// amplifier is already in the requested state.
type ampSwitch interface {
	AmpOn() (bool, error)
	AmpOff() (bool, error)
}

type transmitter interface {
	Transmit(address, command byte) error
}

type line interface {
	SetValue(value int) error
}

type dropCounter interface {
	Dropped() int64
}

// loop owns every piece of hardware the state machine drives. All of its
// methods run on one goroutine.
type loop struct {
	reader     gpio.Reader
	machine    *logic.Machine
	amp        ampSwitch
	tx         transmitter
	led        line
	serial     serial.Source
	remote     remote.Decoder
	kicker     watchdog.Kicker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	log        *logger.Logger
	heartbeat  time.Duration
	now        func() time.Time

	lastHeartbeat time.Time
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	l.lastHeartbeat = l.now()

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil
		case <-tick:
			l.step(l.now())
		}
	}
}

// step is one iteration: watchdog, sample, step the machine, act, report.
func (l *loop) step(t time.Time) {
	if err := l.kicker.Kick(); err != nil {
		l.log.Warnw("watchdog kick failed", "err", err)
	}

	amp, source, err := l.reader.Read()
	if err != nil {
		l.log.Errorw("gpio read error", "err", err)
		return
	}

	in := logic.Input{
		Time:   t,
		Amp:    amp,
		Source: source,
		Serial: l.serial.Poll(),
	}
	if f, ok := l.remote.Poll(); ok {
		in.Frame = &f
		l.remote.Reset()
	}

	out := l.machine.Step(in)

	for _, a := range out.Actions {
		l.execute(a)
	}
	for _, e := range out.Events {
		l.report(e)
	}

	l.updateTracker(t)
	l.checkHeartbeat(t)
}

func (l *loop) execute(a logic.Action) {
	switch a.Type {
	case logic.ActionAmpOn:
		if _, err := l.amp.AmpOn(); err != nil {
			l.log.Errorw("amp on failed", "origin", a.Origin, "err", err)
		}
	case logic.ActionAmpOff:
		if _, err := l.amp.AmpOff(); err != nil {
			l.log.Errorw("amp off failed", "origin", a.Origin, "err", err)
		}
	case logic.ActionTransmit:
		if err := l.tx.Transmit(a.Address, a.Command); err != nil {
			l.log.Errorw("ir transmit failed", "address", hexByte(a.Address), "command", hexByte(a.Command), "err", err)
			return
		}
		l.log.Infow("ir transmit", "address", hexByte(a.Address), "command", hexByte(a.Command), "origin", a.Origin)
	case logic.ActionLEDOn, logic.ActionLEDOff:
		v := 0
		if a.Type == logic.ActionLEDOn {
			v = 1
		}
		if err := l.led.SetValue(v); err != nil {
			l.log.Errorw("led write failed", "value", v, "err", err)
		}
	}
}

func (l *loop) report(e logic.Event) {
	switch e.Type {
	case logic.EventRemoteMalformed:
		l.log.Warnw("malformed remote frame", frameFields(e.Frame)...)
	case logic.EventRemoteForeign:
		l.log.Infow("remote frame for another device", frameFields(e.Frame)...)
	case logic.EventRemoteUnmapped:
		l.log.Infow("unmapped remote command", frameFields(e.Frame)...)
	case logic.EventCommand:
		l.log.Infow("command", "command", e.Command, "origin", e.Origin)
	case logic.EventAmpPowerOn, logic.EventAmpPowerOff:
		l.log.Infow("amplifier power", "amp", e.AmpState, "source", e.SourceState)
	default:
		l.log.Infow("event", "type", e.Type, "amp", e.AmpState, "source", e.SourceState)
	}

	if l.tracker != nil {
		l.tracker.RecordEvent(e)
	}
	if err := l.publisher.Publish(e); err != nil {
		l.log.Warnw("publish error", "event", e.Type, "err", err)
	}
}

func frameFields(f *remote.Frame) []any {
	if f == nil {
		return nil
	}
	return []any{"start_bits", f.StartBits, "address", f.Address, "command", f.Command, "toggle", f.Toggle}
}

func (l *loop) updateTracker(t time.Time) {
	if l.tracker == nil {
		return
	}
	amp, source := l.machine.CurrentState()
	l.tracker.Update(status.Update{
		Amp:               amp,
		Source:            source,
		OffDelayPending:   l.machine.OffDelayPending(),
		OffDelayRemaining: l.machine.OffDelayRemaining(t),
		LEDActive:         l.machine.LEDActive(),
		Counts:            l.machine.Counts(),
		Dropped:           l.dropped(),
	})
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// dropped collects overflow counts from intake sources that keep them.
func (l *loop) dropped() status.Dropped {
	var d status.Dropped
	if c, ok := l.serial.(dropCounter); ok {
		d.Serial = c.Dropped()
	}
	if c, ok := l.remote.(dropCounter); ok {
		d.Remote = c.Dropped()
	}
	return d
}

func (l *loop) checkHeartbeat(t time.Time) {
	if l.heartbeat <= 0 || t.Sub(l.lastHeartbeat) < l.heartbeat {
		return
	}
	l.lastHeartbeat = t

	c := l.machine.Counts()
	d := l.dropped()
	l.log.Infow("heartbeat", "amp_on", c.AmpOn, "amp_off", c.AmpOff, "transmits", c.Transmits, "remote", c.Remote,
		"serial_dropped", d.Serial, "remote_dropped", d.Remote)

	hb := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
	if l.tracker != nil {
		hb.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hb); err != nil {
		l.log.Warnw("heartbeat publish error", "err", err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Infow("shutting down", "signal", s)

	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warnw("failed to publish shutdown event", "err", err)
	}
}
