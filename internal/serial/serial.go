// Package serial provides the single-byte command source polled by the
// control loop, fed from a serial port or any other byte producer.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	bugserial "go.bug.st/serial"
)

// NoByte is returned by Poll when nothing is waiting.
const NoByte = -1

// DefaultBaud matches the controller's debug console.
const DefaultBaud = 9600

// readTimeout bounds each port read so cancellation is noticed.
const readTimeout = 100 * time.Millisecond

// Source yields at most one command byte per call.
type Source interface {
	Poll() int
}

// Queue is a bounded byte FIFO with one producer side and one consumer side.
type Queue struct {
	ch      chan byte
	dropped atomic.Int64
}

// NewQueue creates a queue holding up to size bytes.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{ch: make(chan byte, size)}
}

// Push enqueues b without blocking. It returns false if the queue is full.
func (q *Queue) Push(b byte) bool {
	select {
	case q.ch <- b:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Write pushes every byte of p. Bytes that do not fit are dropped.
func (q *Queue) Write(p []byte) (int, error) {
	for _, b := range p {
		q.Push(b)
	}
	return len(p), nil
}

// Poll returns the next byte or NoByte.
func (q *Queue) Poll() int {
	select {
	case b := <-q.ch:
		return int(b)
	default:
		return NoByte
	}
}

// Dropped returns how many bytes were discarded because the queue was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Open opens a serial port at baud, 8N1, with a short read timeout.
func Open(name string, baud int) (bugserial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := bugserial.Open(name, &bugserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return port, nil
}

// Pump copies bytes from r into q until ctx is done or r reports EOF.
// A read error after ctx is done is the port being closed and is not reported.
// r should return periodically (e.g. a port with a read timeout).
func Pump(ctx context.Context, r io.Reader, q *Queue) error {
	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			q.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read serial: %w", err)
		}
	}
}
