package carrier

import "time"

// BusyWait toggles a GPIO line with spin loops. Edges are scheduled against
// the start of each call so per-edge overhead does not accumulate.
type BusyWait struct {
	line Line
	half time.Duration
	now  func() time.Time
	err  error
}

// NewBusyWait creates a generator driving line. The line is set low.
func NewBusyWait(line Line) *BusyWait {
	b := &BusyWait{line: line, half: HalfPeriod, now: time.Now}
	b.set(0)
	return b
}

// Mark emits bursts*CyclesPerBurst carrier cycles.
func (b *BusyWait) Mark(bursts int) {
	if bursts <= 0 {
		b.set(0)
		return
	}
	start := b.now()
	edges := bursts * CyclesPerBurst * 2
	for k := 0; k < edges; k++ {
		b.set(1 - k%2)
		b.spinUntil(start.Add(time.Duration(k+1) * b.half))
	}
	b.set(0)
}

// Space holds the line low for the same time Mark would take.
func (b *BusyWait) Space(bursts int) {
	b.set(0)
	if bursts <= 0 {
		return
	}
	start := b.now()
	b.spinUntil(start.Add(time.Duration(bursts*CyclesPerBurst*2) * b.half))
}

// Flush reports the first line write error since the previous Flush.
func (b *BusyWait) Flush() error {
	err := b.err
	b.err = nil
	return err
}

func (b *BusyWait) set(v int) {
	if err := b.line.SetValue(v); err != nil && b.err == nil {
		b.err = err
	}
}

func (b *BusyWait) spinUntil(deadline time.Time) {
	for b.now().Before(deadline) {
	}
}
