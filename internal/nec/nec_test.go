package nec

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/carrier"
)

func TestFrameBits(t *testing.T) {
	tests := []struct {
		addr, cmd byte
		want      uint32
	}{
		{0x11, 0x60, 0x11EE609F},
		{0x11, 0x62, 0x11EE629D},
		{0x00, 0x00, 0x00FF00FF},
		{0xFF, 0xFF, 0xFF00FF00},
	}
	for _, tt := range tests {
		got := Frame{Address: tt.addr, Command: tt.cmd}.Bits()
		if got != tt.want {
			t.Errorf("Bits(%#02x, %#02x): got %#08x, want %#08x", tt.addr, tt.cmd, got, tt.want)
		}
	}
}

// TestTransmitBitSlots checks every address/command pair: after the lead-in
// there are exactly 32 bit slots carrying address, ^address, command, ^command
// MSB first, each 0 a mark plus one space burst and each 1 a mark plus three.
func TestTransmitBitSlots(t *testing.T) {
	rec := &carrier.Recorder{}
	tx := NewTransmitter(rec)

	for a := 0; a < 256; a++ {
		for c := 0; c < 256; c++ {
			rec.Segments = rec.Segments[:0]
			if err := tx.Transmit(byte(a), byte(c)); err != nil {
				t.Fatalf("Transmit: %v", err)
			}
			segs := rec.Segments

			if len(segs) != 67 {
				t.Fatalf("(%d,%d): expected 67 segments, got %d", a, c, len(segs))
			}
			if segs[0] != (carrier.Segment{Mark: true, Bursts: 16}) || segs[1] != (carrier.Segment{Bursts: 8}) {
				t.Fatalf("(%d,%d): bad lead-in %+v %+v", a, c, segs[0], segs[1])
			}

			want := uint32(a)<<24 | uint32(^byte(a))<<16 | uint32(c)<<8 | uint32(^byte(c))
			for i := 0; i < 32; i++ {
				mark, space := segs[2+2*i], segs[3+2*i]
				if mark != (carrier.Segment{Mark: true, Bursts: 1}) {
					t.Fatalf("(%d,%d) bit %d: bad mark %+v", a, c, i, mark)
				}
				wantSpace := 1
				if want&(1<<uint(31-i)) != 0 {
					wantSpace = 3
				}
				if space.Mark || space.Bursts != wantSpace {
					t.Fatalf("(%d,%d) bit %d: got space %+v, want %d bursts", a, c, i, space, wantSpace)
				}
			}
			if segs[66] != (carrier.Segment{Mark: true, Bursts: 1}) {
				t.Fatalf("(%d,%d): bad trailer %+v", a, c, segs[66])
			}
		}
	}
}

func TestTransmitFlushes(t *testing.T) {
	rec := &carrier.Recorder{}
	tx := NewTransmitter(rec)

	if err := tx.Transmit(0x11, 0x60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Flushes != 1 {
		t.Errorf("expected 1 flush, got %d", rec.Flushes)
	}
}

func TestTransmitFlushError(t *testing.T) {
	rec := &carrier.Recorder{FlushError: errors.New("device busy")}
	tx := NewTransmitter(rec)

	err := tx.Transmit(0x11, 0x60)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, rec.FlushError) {
		t.Errorf("expected wrapped flush error, got %v", err)
	}
}

func TestTransmitRepeat(t *testing.T) {
	rec := &carrier.Recorder{}
	tx := NewTransmitter(rec)

	if err := tx.TransmitRepeat(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []carrier.Segment{{Mark: true, Bursts: 16}, {Bursts: 4}, {Mark: true, Bursts: 1}}
	if len(rec.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(rec.Segments))
	}
	for i := range want {
		if rec.Segments[i] != want[i] {
			t.Errorf("segment %d: got %+v, want %+v", i, rec.Segments[i], want[i])
		}
	}
	if d := Duration(rec.Segments); d != 11812500*time.Nanosecond {
		t.Errorf("repeat duration: got %v", d)
	}
}

func TestDurationWorstCase(t *testing.T) {
	d := Duration(Frame{Address: 0xFF, Command: 0xFF}.Marshal())
	// 16 bits are 1 in any frame: the inverted bytes complement the others.
	want := 13500*time.Microsecond + 16*2250*time.Microsecond + 16*1125*time.Microsecond + 562500*time.Nanosecond
	if d != want {
		t.Errorf("got %v, want %v", d, want)
	}
}

func TestDecode(t *testing.T) {
	f := Frame{Address: 0x11, Command: 0x62}
	got, err := Decode(f.Marshal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != f {
		t.Errorf("got %+v, want %+v", got, f)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := Frame{Address: 0x11, Command: 0x60}.Marshal()

	short := valid[:10]

	badLead := append([]carrier.Segment(nil), valid...)
	badLead[0].Bursts = 15

	badSpace := append([]carrier.Segment(nil), valid...)
	badSpace[3].Bursts = 2

	badTrail := append([]carrier.Segment(nil), valid...)
	badTrail[66].Mark = false

	// Flip bit 0 of the address byte (space after first data mark).
	badCheck := append([]carrier.Segment(nil), valid...)
	if badCheck[17].Bursts == 1 {
		badCheck[17].Bursts = 3
	} else {
		badCheck[17].Bursts = 1
	}

	tests := []struct {
		name string
		segs []carrier.Segment
		want error
	}{
		{"short", short, ErrMalformed},
		{"bad_lead", badLead, ErrMalformed},
		{"bad_space", badSpace, ErrMalformed},
		{"bad_trailer", badTrail, ErrMalformed},
		{"checksum", badCheck, ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.segs); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
