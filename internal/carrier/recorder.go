package carrier

// Recorder is a Generator test double that records every call.
type Recorder struct {
	// Segments holds one entry per Mark or Space call, in order.
	Segments []Segment

	// Flushes counts Flush calls.
	Flushes int

	// FlushError, if set, is returned by Flush.
	FlushError error
}

// Mark records a carrier segment.
func (r *Recorder) Mark(bursts int) {
	r.Segments = append(r.Segments, Segment{Mark: true, Bursts: bursts})
}

// Space records a silent segment.
func (r *Recorder) Space(bursts int) {
	r.Segments = append(r.Segments, Segment{Mark: false, Bursts: bursts})
}

// Flush counts the call.
func (r *Recorder) Flush() error {
	r.Flushes++
	return r.FlushError
}

// Reset clears recorded segments.
func (r *Recorder) Reset() {
	r.Segments = nil
	r.Flushes = 0
	r.FlushError = nil
}
