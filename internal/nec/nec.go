// Package nec encodes and transmits NEC infrared remote frames.
//
// A frame is four bytes sent MSB first: address, ^address, command, ^command.
// Bits are distinguished by the length of the space after a fixed mark:
// a 0 is one mark burst plus one space burst, a 1 is one mark plus three.
package nec

import (
	"errors"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/carrier"
)

// Burst counts for each part of a frame.
const (
	LeadMarkBursts    = 16 // 9ms
	LeadSpaceBursts   = 8  // 4.5ms
	RepeatSpaceBursts = 4  // 2.25ms
	BitMarkBursts     = 1
	ZeroSpaceBursts   = 1
	OneSpaceBursts    = 3
	TrailMarkBursts   = 1
)

// RepeatPeriod is how often a repeat frame is sent while a key is held.
// Transmitter does not schedule repeats itself.
const RepeatPeriod = 110 * time.Millisecond

var (
	// ErrMalformed is returned by Decode when the segment timing is not an NEC frame.
	ErrMalformed = errors.New("nec: malformed frame")
	// ErrChecksum is returned by Decode when an inverted byte does not match.
	ErrChecksum = errors.New("nec: inverted byte mismatch")
)

// Frame is an NEC address/command pair.
type Frame struct {
	Address byte
	Command byte
}

// Bits returns the 32 bit frame: address, ^address, command, ^command.
func (f Frame) Bits() uint32 {
	return uint32(f.Address)<<24 |
		uint32(^f.Address)<<16 |
		uint32(f.Command)<<8 |
		uint32(^f.Command)
}

// Marshal returns the mark/space segments for the frame.
func (f Frame) Marshal() []carrier.Segment {
	out := make([]carrier.Segment, 0, 2+2*32+1)
	out = append(out,
		carrier.Segment{Mark: true, Bursts: LeadMarkBursts},
		carrier.Segment{Mark: false, Bursts: LeadSpaceBursts},
	)

	bits := f.Bits()
	for i := 31; i >= 0; i-- {
		space := ZeroSpaceBursts
		if bits&(1<<uint(i)) != 0 {
			space = OneSpaceBursts
		}
		out = append(out,
			carrier.Segment{Mark: true, Bursts: BitMarkBursts},
			carrier.Segment{Mark: false, Bursts: space},
		)
	}

	return append(out, carrier.Segment{Mark: true, Bursts: TrailMarkBursts})
}

// RepeatSegments returns the segments of an NEC repeat frame.
func RepeatSegments() []carrier.Segment {
	return []carrier.Segment{
		{Mark: true, Bursts: LeadMarkBursts},
		{Mark: false, Bursts: RepeatSpaceBursts},
		{Mark: true, Bursts: TrailMarkBursts},
	}
}

// Duration returns the nominal on-air time of segs.
func Duration(segs []carrier.Segment) time.Duration {
	var d time.Duration
	for _, s := range segs {
		d += s.Duration()
	}
	return d
}

// Decode parses segments produced by Marshal back into a Frame.
func Decode(segs []carrier.Segment) (Frame, error) {
	if len(segs) != 2+2*32+1 {
		return Frame{}, ErrMalformed
	}
	if segs[0] != (carrier.Segment{Mark: true, Bursts: LeadMarkBursts}) ||
		segs[1] != (carrier.Segment{Mark: false, Bursts: LeadSpaceBursts}) {
		return Frame{}, ErrMalformed
	}

	var bits uint32
	for i := 0; i < 32; i++ {
		mark, space := segs[2+2*i], segs[3+2*i]
		if mark != (carrier.Segment{Mark: true, Bursts: BitMarkBursts}) || space.Mark {
			return Frame{}, ErrMalformed
		}
		bits <<= 1
		switch space.Bursts {
		case ZeroSpaceBursts:
		case OneSpaceBursts:
			bits |= 1
		default:
			return Frame{}, ErrMalformed
		}
	}
	if segs[len(segs)-1] != (carrier.Segment{Mark: true, Bursts: TrailMarkBursts}) {
		return Frame{}, ErrMalformed
	}

	f := Frame{Address: byte(bits >> 24), Command: byte(bits >> 8)}
	if byte(bits>>16) != ^f.Address || byte(bits) != ^f.Command {
		return Frame{}, ErrChecksum
	}
	return f, nil
}
