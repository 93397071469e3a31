package logic

import (
	"testing"
	"time"
)

func TestCountdown(t *testing.T) {
	var c Countdown
	if c.Running() || c.Expired(t0) || c.Remaining(t0) != 0 {
		t.Fatal("zero countdown should be stopped")
	}

	c.Arm(t0, time.Second)
	if !c.Running() {
		t.Error("armed countdown should be running")
	}
	if c.Expired(t0.Add(999 * time.Millisecond)) {
		t.Error("should not expire before deadline")
	}
	if !c.Expired(t0.Add(time.Second)) {
		t.Error("should expire at deadline")
	}
	if got := c.Remaining(t0.Add(250 * time.Millisecond)); got != 750*time.Millisecond {
		t.Errorf("remaining: got %v", got)
	}

	c.Arm(t0.Add(500*time.Millisecond), time.Second)
	if c.Expired(t0.Add(time.Second)) {
		t.Error("re-arm should move the deadline")
	}

	c.Stop()
	if c.Running() || c.Expired(t0.Add(time.Hour)) {
		t.Error("stopped countdown should never expire")
	}
}
