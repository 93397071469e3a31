// Package watchdog services the supervisor watchdog from the control loop.
// A missed deadline restarts the whole daemon; nothing here recovers.
package watchdog

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Kicker is serviced once per loop iteration.
type Kicker interface {
	Kick() error
}

// Nop is used when no watchdog is configured.
type Nop struct{}

// Kick does nothing.
func (Nop) Kick() error { return nil }

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Systemd pings the systemd watchdog (WatchdogSec=) at half its interval,
// however often Kick is called.
type Systemd struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	notify   notifyFunc
}

// NewSystemd returns a Systemd kicker, or Nop if the unit has no watchdog.
// It also reports readiness to systemd.
func NewSystemd() (Kicker, error) {
	timeout, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return nil, fmt.Errorf("query systemd watchdog: %w", err)
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return nil, fmt.Errorf("notify systemd ready: %w", err)
	}
	if timeout == 0 {
		return Nop{}, nil
	}
	return newSystemd(timeout, time.Now, daemon.SdNotify), nil
}

func newSystemd(timeout time.Duration, now func() time.Time, notify notifyFunc) *Systemd {
	return &Systemd{interval: timeout / 2, now: now, notify: notify}
}

// Kick sends WATCHDOG=1 if at least half the timeout has passed since the last one.
func (s *Systemd) Kick() error {
	t := s.now()
	if !s.last.IsZero() && t.Sub(s.last) < s.interval {
		return nil
	}
	if _, err := s.notify(false, daemon.SdNotifyWatchdog); err != nil {
		return fmt.Errorf("kick systemd watchdog: %w", err)
	}
	s.last = t
	return nil
}

// Interval returns the minimum time between notifications.
func (s *Systemd) Interval() time.Duration {
	return s.interval
}
