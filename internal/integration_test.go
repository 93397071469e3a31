package internal

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/amp-ircontrol/internal/carrier"
	"github.com/sweeney/amp-ircontrol/internal/gpio"
	"github.com/sweeney/amp-ircontrol/internal/logger"
	"github.com/sweeney/amp-ircontrol/internal/logic"
	"github.com/sweeney/amp-ircontrol/internal/mqtt"
	"github.com/sweeney/amp-ircontrol/internal/nec"
	"github.com/sweeney/amp-ircontrol/internal/relay"
	"github.com/sweeney/amp-ircontrol/internal/remote"
	"github.com/sweeney/amp-ircontrol/internal/serial"
	"github.com/sweeney/amp-ircontrol/internal/status"
)

// amplifier models the real unit: its power toggles when the relay across
// its power button is released.
type amplifier struct {
	coil *gpio.FakeOutput
	on   bool
}

func (a *amplifier) SetValue(v int) error {
	if a.coil.Value() == 1 && v == 0 {
		a.on = !a.on
	}
	return a.coil.SetValue(v)
}

func (a *amplifier) AmpOn() (bool, error) { return a.on, nil }

// rig wires the real machine, relay, NEC encoder and intake queues to fakes.
type rig struct {
	t        *testing.T
	now      time.Time
	step     time.Duration
	source   bool
	amp      *amplifier
	actuator *relay.Actuator
	ir       *carrier.Recorder
	tx       *nec.Transmitter
	led      *gpio.FakeOutput
	queue    *serial.Queue
	slot     *remote.Slot
	machine  *logic.Machine
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	logs     *observer.ObservedLogs
}

func newRig(t *testing.T, step time.Duration) *rig {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	amp := &amplifier{coil: gpio.NewFakeOutput()}
	r := &rig{
		t:       t,
		now:     start,
		step:    step,
		amp:     amp,
		ir:      &carrier.Recorder{},
		led:     gpio.NewFakeOutput(),
		queue:   serial.NewQueue(16),
		slot:    remote.NewSlot(),
		machine: logic.NewMachine(logic.DefaultConfig()),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(start, status.Config{OffDelayMs: 3000}),
		logs:    logs,
	}
	r.actuator = relay.NewActuator(amp, amp, logger.Wrap(zap.New(core)))
	r.actuator.SetPulse(time.Microsecond)
	r.tx = nec.NewTransmitter(r.ir)
	return r
}

// tick runs one loop iteration the way the daemon does.
func (r *rig) tick() {
	r.t.Helper()
	r.now = r.now.Add(r.step)

	in := logic.Input{Time: r.now, Amp: r.amp.on, Source: r.source, Serial: r.queue.Poll()}
	if f, ok := r.slot.Poll(); ok {
		in.Frame = &f
		r.slot.Reset()
	}
	out := r.machine.Step(in)

	for _, a := range out.Actions {
		var err error
		switch a.Type {
		case logic.ActionAmpOn:
			_, err = r.actuator.AmpOn()
		case logic.ActionAmpOff:
			_, err = r.actuator.AmpOff()
		case logic.ActionTransmit:
			err = r.tx.Transmit(a.Address, a.Command)
		case logic.ActionLEDOn:
			err = r.led.SetValue(1)
		case logic.ActionLEDOff:
			err = r.led.SetValue(0)
		}
		if err != nil {
			r.t.Fatalf("action %s: %v", a.Type, err)
		}
	}
	for _, e := range out.Events {
		r.tracker.RecordEvent(e)
		if err := r.pub.Publish(e); err != nil {
			r.t.Fatalf("publish: %v", err)
		}
	}

	amp, source := r.machine.CurrentState()
	r.tracker.Update(status.Update{
		Amp:               amp,
		Source:            source,
		OffDelayPending:   r.machine.OffDelayPending(),
		OffDelayRemaining: r.machine.OffDelayRemaining(r.now),
		LEDActive:         r.machine.LEDActive(),
		Counts:            r.machine.Counts(),
	})
}

func (r *rig) ticks(n int) {
	r.t.Helper()
	for i := 0; i < n; i++ {
		r.tick()
	}
}

func (r *rig) count(typ logic.EventType) int {
	n := 0
	for _, e := range r.pub.Events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestIntegrationPowerSequencing(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)

	r.ticks(2)
	r.source = true
	r.ticks(2)

	if !r.amp.on {
		t.Fatal("amplifier should follow the source on")
	}
	if r.count(logic.EventAmpPowerOn) != 1 {
		t.Errorf("AMP_POWER_ON events: got %d, want 1", r.count(logic.EventAmpPowerOn))
	}

	r.source = false
	r.ticks(5) // 2.5s into a 3s delay
	if !r.amp.on {
		t.Fatal("amplifier switched off before the delay")
	}
	r.ticks(2)
	if r.amp.on {
		t.Fatal("amplifier should be off after the delay")
	}
	if r.amp.coil.Rises() != 2 {
		t.Errorf("relay pulses: got %d, want 2", r.amp.coil.Rises())
	}
	if r.count(logic.EventOffDelayExpired) != 1 {
		t.Errorf("OFF_DELAY_EXPIRED events: got %d", r.count(logic.EventOffDelayExpired))
	}
}

func TestIntegrationSourceReturnsDuringDelay(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)

	r.source = true
	r.ticks(2)
	r.source = false
	r.ticks(3)
	r.source = true
	r.ticks(10)

	if !r.amp.on {
		t.Error("amplifier should stay on")
	}
	if r.amp.coil.Rises() != 1 {
		t.Errorf("relay pulses: got %d, want 1", r.amp.coil.Rises())
	}
	if r.tracker.Snapshot().OffDelayPending {
		t.Error("delay should be cancelled")
	}
}

func TestIntegrationRedundantSerialOnDoesNotToggle(t *testing.T) {
	r := newRig(t, 10*time.Millisecond)

	r.source = true
	r.ticks(2)
	r.queue.Push('n')
	r.ticks(2)

	if !r.amp.on || r.amp.coil.Rises() != 1 {
		t.Errorf("amp on=%v pulses=%d, want on with one pulse", r.amp.on, r.amp.coil.Rises())
	}
	if r.logs.FilterMessage("amplifier already ON").Len() != 1 {
		t.Error("expected 'amplifier already ON' log")
	}
}

func TestIntegrationSerialOffThenOn(t *testing.T) {
	r := newRig(t, 10*time.Millisecond)

	r.source = true
	r.ticks(2)
	_, _ = r.queue.Write([]byte("f"))
	r.ticks(2)
	if r.amp.on {
		t.Fatal("serial off should switch the amplifier off")
	}
	_, _ = r.queue.Write([]byte("1"))
	r.ticks(2)
	if !r.amp.on {
		t.Fatal("serial on should switch the amplifier back on")
	}
	if r.amp.coil.Rises() != 3 {
		t.Errorf("relay pulses: got %d, want 3", r.amp.coil.Rises())
	}
}

func TestIntegrationRemoteVolumeRoundTrip(t *testing.T) {
	r := newRig(t, 10*time.Millisecond)
	cfg := logic.DefaultConfig()

	f, err := remote.ParseJSON([]byte(`{"start_bits":3,"address":16,"command":17,"toggle":false}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !r.slot.Offer(f) {
		t.Fatal("slot should accept the first frame")
	}
	r.tick()

	got, err := nec.Decode(r.ir.Segments)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (nec.Frame{Address: cfg.NECAddress, Command: cfg.NECVolumeDown}) {
		t.Errorf("sent: got %+v", got)
	}
	if r.led.Value() != 1 {
		t.Error("LED should light for our remote")
	}

	var p mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[0], &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Amp.Event != "COMMAND" || p.Amp.Command != "VOLUME_DOWN" || p.Amp.Origin != "remote" {
		t.Errorf("payload: got %+v", p.Amp)
	}

	// The LED window closes after five seconds of silence.
	r.step = time.Second
	r.ticks(5)
	if r.led.Value() != 0 {
		t.Error("LED should go dark after the window")
	}
}

func TestIntegrationForeignRemoteIgnored(t *testing.T) {
	r := newRig(t, 10*time.Millisecond)

	// A bridge reporting another device beyond the 5-bit RC-5 range.
	f, err := remote.ParseJSON([]byte(`{"start_bits":3,"address":40,"command":16}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	r.slot.Offer(f)
	r.tick()

	if len(r.ir.Segments) != 0 || len(r.led.Values()) != 0 {
		t.Error("foreign frame must not transmit or light the LED")
	}
	if r.count(logic.EventRemoteForeign) != 1 {
		t.Errorf("REMOTE_FOREIGN events: got %d", r.count(logic.EventRemoteForeign))
	}
	if _, ok := r.slot.Poll(); ok {
		t.Error("slot should be re-armed")
	}
}

func TestIntegrationStatusJSON(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)

	r.source = true
	r.ticks(2)
	r.source = false
	r.tick()

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(r.tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := sj.Status
	if s.Amp != "ON" || s.Source != "OFF" {
		t.Errorf("states: got %s/%s", s.Amp, s.Source)
	}
	if !s.OffDelay.Pending || s.OffDelay.RemainingMs != 3000 {
		t.Errorf("off_delay: got %+v", s.OffDelay)
	}
	if s.Counts.AmpOn != 1 || s.Counts.OffDelay != 1 {
		t.Errorf("counts: got %+v", s.Counts)
	}
	if s.LastEvent != string(logic.EventOffDelayArmed) {
		t.Errorf("last_event: got %q", s.LastEvent)
	}
}
