// Package status provides a thread-safe status tracker for the amp-ircontrol daemon.
// It is written by the control loop and read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	OffDelayMs  int64
	LEDWindowMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	IRDevice    string // empty = GPIO busy-wait
	SerialPort  string
}

// Update is the per-iteration view of the state machine.
type Update struct {
	Amp               logic.State
	Source            logic.State
	OffDelayPending   bool
	OffDelayRemaining time.Duration
	LEDActive         bool
	Counts            logic.Counts
	Dropped           Dropped
}

// Dropped counts inputs discarded before the control loop saw them.
type Dropped struct {
	Serial int64 // bytes lost to a full serial queue
	Remote int64 // frames offered while the remote slot was held
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Update
	LastEvent     logic.EventType
	LastEventAt   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the state machine view. Called from the loop on every tick.
func (t *Tracker) Update(u Update) {
	t.mu.Lock()
	t.snap.Update = u
	t.mu.Unlock()
}

// RecordEvent remembers the most recent event.
func (t *Tracker) RecordEvent(e logic.Event) {
	t.mu.Lock()
	t.snap.LastEvent = e.Type
	t.snap.LastEventAt = e.Timestamp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
