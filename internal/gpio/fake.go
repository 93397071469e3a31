package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted rail levels.
type FakeReader struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// Sample represents a single reading (already in logical form).
type Sample struct {
	Amp    bool // true = ON
	Source bool // true = ON
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.Amp, sample.Source, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeOutput records every value written to it.
type FakeOutput struct {
	mu     sync.Mutex
	values []int

	// SetError, if set, is returned by SetValue (the value is still recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates an empty FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetValue records v.
func (f *FakeOutput) SetValue(v int) error {
	f.mu.Lock()
	f.values = append(f.values, v)
	f.mu.Unlock()
	return f.SetError
}

// Values returns a copy of everything written.
func (f *FakeOutput) Values() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.values...)
}

// Value returns the last written value, or 0 if none.
func (f *FakeOutput) Value() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	return f.values[len(f.values)-1]
}

// Rises counts 0->1 transitions, starting from low.
func (f *FakeOutput) Rises() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, prev := 0, 0
	for _, v := range f.values {
		if v == 1 && prev == 0 {
			n++
		}
		prev = v
	}
	return n
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}
