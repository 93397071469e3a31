package nec

import (
	"fmt"

	"github.com/sweeney/amp-ircontrol/internal/carrier"
)

// Transmitter sends NEC frames through a carrier generator.
// Calls block for the whole frame (up to ~68ms) and cannot be cancelled.
type Transmitter struct {
	gen carrier.Generator
}

// NewTransmitter creates a Transmitter driving gen.
func NewTransmitter(gen carrier.Generator) *Transmitter {
	return &Transmitter{gen: gen}
}

// Transmit sends one full frame for address and command.
func (t *Transmitter) Transmit(address, command byte) error {
	return t.send(Frame{Address: address, Command: command}.Marshal())
}

// TransmitRepeat sends one repeat frame. The caller owns the repeat cadence
// (see RepeatPeriod).
func (t *Transmitter) TransmitRepeat() error {
	return t.send(RepeatSegments())
}

func (t *Transmitter) send(segs []carrier.Segment) error {
	carrier.Play(t.gen, segs)
	if f, ok := t.gen.(carrier.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("transmit: %w", err)
		}
	}
	return nil
}
