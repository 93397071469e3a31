//go:build !linux

package carrier

import "errors"

// LIRC is not available on non-Linux platforms.
type LIRC struct{}

// OpenLIRC returns an error on non-Linux platforms.
func OpenLIRC(path string) (*LIRC, error) {
	return nil, errors.New("carrier: lirc not supported on this platform (requires Linux)")
}

// Mark does nothing.
func (l *LIRC) Mark(bursts int) {}

// Space does nothing.
func (l *LIRC) Space(bursts int) {}

// Flush does nothing.
func (l *LIRC) Flush() error { return nil }

// Close does nothing.
func (l *LIRC) Close() error { return nil }
