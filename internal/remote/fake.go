package remote

// FakeDecoder is a Decoder test double fed from a script of frames.
// Each Reset advances to the next frame; Poll keeps returning the current
// one until then.
type FakeDecoder struct {
	// Frames are delivered in order, one per Reset.
	Frames []Frame

	// Polls and Resets count calls.
	Polls  int
	Resets int

	index int
}

// NewFakeDecoder creates a FakeDecoder with scripted frames.
func NewFakeDecoder(frames ...Frame) *FakeDecoder {
	return &FakeDecoder{Frames: frames}
}

// Poll returns the current scripted frame.
func (f *FakeDecoder) Poll() (Frame, bool) {
	f.Polls++
	if f.index >= len(f.Frames) {
		return Frame{}, false
	}
	return f.Frames[f.index], true
}

// Reset moves to the next scripted frame.
func (f *FakeDecoder) Reset() {
	f.Resets++
	if f.index < len(f.Frames) {
		f.index++
	}
}
