// Package remote holds decoded infrared remote frames and the single-slot
// handoff between the receiver and the control loop.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ValidStartBits is the start bit count of a well formed frame.
const ValidStartBits = 3

// Field limits accepted from receivers. RC-5 itself only uses 5 address
// bits, but extended receivers report up to 6 and other devices' frames are
// still passed on so the loop can count them as foreign.
const (
	MaxStartBits = 3
	MaxAddress   = 63
	MaxCommand   = 127
)

// ErrRange is returned when a frame field is outside its protocol range.
var ErrRange = errors.New("remote: field out of range")

// Frame is one decoded remote transmission.
type Frame struct {
	StartBits uint8
	Address   uint8
	Command   uint8
	Toggle    bool
}

// Valid reports whether the frame has the expected start bit count.
func (f Frame) Valid() bool {
	return f.StartBits == ValidStartBits
}

// Decoder is the receiver side interface polled by the control loop.
// A frame returned by Poll stays held until Reset re-arms the decoder.
type Decoder interface {
	Poll() (Frame, bool)
	Reset()
}

// Slot is a single-slot Decoder fed by another goroutine.
// While a frame is held, further offers are dropped.
type Slot struct {
	mu      sync.Mutex
	frame   Frame
	full    bool
	dropped int64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Offer stores f if the slot is empty. It returns false if f was dropped.
func (s *Slot) Offer(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		s.dropped++
		return false
	}
	s.frame = f
	s.full = true
	return true
}

// Poll returns the held frame, if any, without clearing it.
func (s *Slot) Poll() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.full
}

// Reset empties the slot so the next frame can be accepted.
func (s *Slot) Reset() {
	s.mu.Lock()
	s.full = false
	s.frame = Frame{}
	s.mu.Unlock()
}

// Dropped returns how many frames were discarded because the slot was full.
func (s *Slot) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// framePayload is the JSON shape published by the receiver bridge.
type framePayload struct {
	StartBits *int `json:"start_bits"`
	Address   *int `json:"address"`
	Command   *int `json:"command"`
	Toggle    bool `json:"toggle"`
}

// ParseJSON decodes a frame published by an external receiver, e.g.
// {"start_bits":3,"address":16,"command":16,"toggle":true}.
func ParseJSON(data []byte) (Frame, error) {
	var p framePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Frame{}, fmt.Errorf("parse remote frame: %w", err)
	}
	if p.StartBits == nil || p.Address == nil || p.Command == nil {
		return Frame{}, fmt.Errorf("parse remote frame: missing field")
	}
	if err := checkRange("start_bits", *p.StartBits, MaxStartBits); err != nil {
		return Frame{}, err
	}
	if err := checkRange("address", *p.Address, MaxAddress); err != nil {
		return Frame{}, err
	}
	if err := checkRange("command", *p.Command, MaxCommand); err != nil {
		return Frame{}, err
	}
	return Frame{
		StartBits: uint8(*p.StartBits),
		Address:   uint8(*p.Address),
		Command:   uint8(*p.Command),
		Toggle:    p.Toggle,
	}, nil
}

func checkRange(name string, v, max int) error {
	if v < 0 || v > max {
		return fmt.Errorf("%s=%d: %w", name, v, ErrRange)
	}
	return nil
}
