//go:build linux

package carrier

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newFileLIRC(t *testing.T) (*LIRC, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lirc0")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return &LIRC{f: f}, path
}

func readPulses(t *testing.T, path string) []uint32 {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw)%4 != 0 {
		t.Fatalf("file length %d is not a multiple of 4", len(raw))
	}
	out := make([]uint32, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		out = append(out, binary.NativeEndian.Uint32(raw[i:]))
	}
	return out
}

func TestLIRCFlushWritesPulseSequence(t *testing.T) {
	l, path := newFileLIRC(t)

	l.Space(3) // leading gap, dropped
	l.Mark(16)
	l.Space(8)
	l.Mark(1)
	l.Space(3)
	l.Mark(1)
	l.Space(2) // trailing gap, dropped

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []uint32{9000, 4500, 562, 1687, 562}
	if got := readPulses(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("pulses: got %v, want %v", got, want)
	}
	if len(l.buf) != 0 {
		t.Errorf("buffer not cleared: %v", l.buf)
	}
}

func TestLIRCMergesAdjacentRuns(t *testing.T) {
	l, path := newFileLIRC(t)

	l.Mark(8)
	l.Mark(8)
	l.Space(4)
	l.Space(0)
	l.Space(4)
	l.Mark(1)

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []uint32{9000, 4500, 562}
	if got := readPulses(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("pulses: got %v, want %v", got, want)
	}
}

func TestLIRCFlushEmptyWritesNothing(t *testing.T) {
	l, path := newFileLIRC(t)

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	l.Space(5)
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush after lone space: %v", err)
	}

	if got := readPulses(t, path); len(got) != 0 {
		t.Errorf("expected empty file, got %v", got)
	}
}

func TestLIRCSequentialFrames(t *testing.T) {
	l, path := newFileLIRC(t)

	l.Mark(16)
	l.Space(4)
	l.Mark(1)
	if err := l.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	l.Mark(1)
	if err := l.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	want := []uint32{9000, 2250, 562, 562}
	if got := readPulses(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("pulses: got %v, want %v", got, want)
	}
}
