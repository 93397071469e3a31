package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	samples := []Sample{
		{Amp: true, Source: false},
		{Amp: false, Source: true},
		{Amp: true, Source: true},
	}

	f := NewFakeReader(samples)

	for i, want := range samples {
		amp, source, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if amp != want.Amp || source != want.Source {
			t.Errorf("sample %d: expected (%v, %v), got (%v, %v)", i, want.Amp, want.Source, amp, source)
		}
	}

	// Fourth read should repeat last sample
	amp, source, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amp != true || source != true {
		t.Errorf("sample 3 (repeat): expected (true, true), got (%v, %v)", amp, source)
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, _, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]Sample{{Amp: true, Source: true}})
	f.ReadError = errors.New("simulated error")

	_, _, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader([]Sample{{Amp: true}, {Source: true}})
	f.Read()

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	amp, source, _ := f.Read()
	if amp != true || source != false {
		t.Errorf("after reset: expected (true, false), got (%v, %v)", amp, source)
	}
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
}

func TestFakeOutput(t *testing.T) {
	o := NewFakeOutput()
	if o.Value() != 0 {
		t.Error("new output should read low")
	}

	for _, v := range []int{1, 0, 0, 1, 1, 0} {
		o.SetValue(v)
	}

	if got := o.Rises(); got != 2 {
		t.Errorf("rises: got %d, want 2", got)
	}
	if got := o.Value(); got != 0 {
		t.Errorf("last value: got %d, want 0", got)
	}
	if got := len(o.Values()); got != 6 {
		t.Errorf("values: got %d, want 6", got)
	}
}

func TestFakeOutputError(t *testing.T) {
	o := NewFakeOutput()
	o.SetError = errors.New("line busy")

	if err := o.SetValue(1); err == nil {
		t.Error("expected error")
	}
	if o.Value() != 1 {
		t.Error("value should be recorded even on error")
	}
}
