// Package relay pulses the relay wired across the amplifier's power toggle.
// The amplifier switches itself; the relay is never held on.
package relay

import (
	"fmt"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/logger"
)

// PulseDuration is how long the coil is energised per toggle.
const PulseDuration = 100 * time.Millisecond

// Sensor reports the live amplifier power level.
type Sensor interface {
	AmpOn() (bool, error)
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func() (bool, error)

// AmpOn calls f.
func (f SensorFunc) AmpOn() (bool, error) { return f() }

// Line is the relay coil output.
type Line interface {
	SetValue(value int) error
}

// Actuator toggles the amplifier when its sensed state differs from the request.
type Actuator struct {
	coil  Line
	amp   Sensor
	log   *logger.Logger
	hold  time.Duration
	sleep func(time.Duration)
}

// NewActuator creates an Actuator with the standard 100ms pulse.
func NewActuator(coil Line, amp Sensor, log *logger.Logger) *Actuator {
	return &Actuator{
		coil:  coil,
		amp:   amp,
		log:   log,
		hold:  PulseDuration,
		sleep: time.Sleep,
	}
}

// SetPulse overrides the coil hold time.
func (a *Actuator) SetPulse(d time.Duration) {
	if d > 0 {
		a.hold = d
	}
}

// AmpOn toggles the amplifier on unless it is already on.
// It reports whether the relay was pulsed.
func (a *Actuator) AmpOn() (bool, error) {
	return a.switchTo(true)
}

// AmpOff toggles the amplifier off unless it is already off.
func (a *Actuator) AmpOff() (bool, error) {
	return a.switchTo(false)
}

func (a *Actuator) switchTo(on bool) (bool, error) {
	target := "OFF"
	if on {
		target = "ON"
	}

	current, err := a.amp.AmpOn()
	if err != nil {
		return false, fmt.Errorf("read amp power: %w", err)
	}
	if current == on {
		a.log.Infow("amplifier already "+target, "target", target)
		return false, nil
	}

	if err := a.pulse(); err != nil {
		return false, err
	}
	a.log.Infow("relay pulsed", "target", target, "hold", a.hold)
	return true, nil
}

// pulse energises the coil for the hold time. The coil is always released,
// even if energising failed part way.
func (a *Actuator) pulse() error {
	if err := a.coil.SetValue(1); err != nil {
		if rerr := a.coil.SetValue(0); rerr != nil {
			a.log.Errorw("relay release failed", "err", rerr)
		}
		return fmt.Errorf("energise relay: %w", err)
	}
	a.sleep(a.hold)
	if err := a.coil.SetValue(0); err != nil {
		return fmt.Errorf("release relay: %w", err)
	}
	return nil
}
