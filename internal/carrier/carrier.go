// Package carrier generates the 38 kHz infrared carrier in fixed burst units.
// Every higher level IR duration is expressed as a whole number of bursts.
package carrier

import "time"

const (
	// CarrierHz is the modulation frequency used by NEC remotes.
	CarrierHz = 38000

	// CyclesPerBurst is the number of carrier cycles in one burst unit.
	CyclesPerBurst = 21

	// HalfPeriod is half a carrier cycle (about 13.16us).
	HalfPeriod = time.Second / (2 * CarrierHz)

	// BurstDuration is the nominal NEC time unit (562.5us).
	BurstDuration = 562500 * time.Nanosecond
)

// Generator emits carrier bursts on an IR LED.
// Both calls block for the full duration and leave the LED off on return.
type Generator interface {
	// Mark drives the carrier for the given number of bursts.
	Mark(bursts int)
	// Space holds the LED off for the given number of bursts.
	Space(bursts int)
}

// Flusher is implemented by generators that buffer output or collect
// write errors. Flush is called once after each complete frame.
type Flusher interface {
	Flush() error
}

// Line is a single digital output.
type Line interface {
	SetValue(value int) error
}

// Segment is one run of carrier (Mark) or silence measured in bursts.
type Segment struct {
	Mark   bool
	Bursts int
}

// Duration returns the nominal length of the segment.
func (s Segment) Duration() time.Duration {
	return time.Duration(s.Bursts) * BurstDuration
}

// Play sends segments through g in order.
func Play(g Generator, segs []Segment) {
	for _, s := range segs {
		if s.Mark {
			g.Mark(s.Bursts)
		} else {
			g.Space(s.Bursts)
		}
	}
}
