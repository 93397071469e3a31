package logic

import "time"

// Countdown is a one-shot deadline. The zero value is stopped.
type Countdown struct {
	deadline time.Time
	running  bool
}

// Arm (re)starts the countdown to expire d after now.
func (c *Countdown) Arm(now time.Time, d time.Duration) {
	c.deadline = now.Add(d)
	c.running = true
}

// Stop cancels the countdown.
func (c *Countdown) Stop() {
	c.running = false
	c.deadline = time.Time{}
}

// Running reports whether the countdown is armed.
func (c *Countdown) Running() bool {
	return c.running
}

// Expired reports whether an armed countdown has reached its deadline.
func (c *Countdown) Expired(now time.Time) bool {
	return c.running && !now.Before(c.deadline)
}

// Remaining returns the time left, or 0 when stopped or expired.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	if !c.running {
		return 0
	}
	if d := c.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
