//go:build linux

package carrier

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// lircSetSendCarrier is LIRC_SET_SEND_CARRIER, _IOW('i', 0x13, __u32).
const lircSetSendCarrier = 0x40046913

// LIRC sends frames through a kernel LIRC transmitter (for example
// gpio-ir-tx or pwm-ir-tx). The kernel generates the carrier, so Mark and
// Space only collect durations and Flush writes the whole frame.
type LIRC struct {
	f    *os.File
	buf  []uint32
	mark bool
}

// OpenLIRC opens a /dev/lircN device and sets a 38 kHz send carrier.
func OpenLIRC(path string) (*LIRC, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open lirc device %s: %w", path, err)
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), lircSetSendCarrier, CarrierHz); err != nil {
		f.Close()
		return nil, fmt.Errorf("set lirc carrier: %w", err)
	}
	return &LIRC{f: f}, nil
}

// Mark appends a pulse.
func (l *LIRC) Mark(bursts int) { l.add(true, bursts) }

// Space appends a gap. Leading gaps are dropped.
func (l *LIRC) Space(bursts int) { l.add(false, bursts) }

func (l *LIRC) add(mark bool, bursts int) {
	if bursts <= 0 {
		return
	}
	us := uint32(time.Duration(bursts) * BurstDuration / time.Microsecond)
	switch {
	case len(l.buf) == 0 && !mark:
		return
	case len(l.buf) > 0 && l.mark == mark:
		l.buf[len(l.buf)-1] += us
	default:
		l.buf = append(l.buf, us)
		l.mark = mark
	}
}

// Flush writes the buffered pulse/space sequence. The kernel expects an odd
// count, so a trailing space is dropped. The write blocks until sent.
func (l *LIRC) Flush() error {
	if len(l.buf) > 0 && !l.mark {
		l.buf = l.buf[:len(l.buf)-1]
	}
	if len(l.buf) == 0 {
		return nil
	}
	raw := make([]byte, 4*len(l.buf))
	for i, v := range l.buf {
		binary.NativeEndian.PutUint32(raw[4*i:], v)
	}
	l.buf = l.buf[:0]
	if _, err := l.f.Write(raw); err != nil {
		return fmt.Errorf("write lirc frame: %w", err)
	}
	return nil
}

// Close releases the device.
func (l *LIRC) Close() error {
	return l.f.Close()
}
