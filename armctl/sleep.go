package armctl

import "time"

// SleepFunc is the pluggable delay used by MaybeSleepForTesting (C8). Tests
// substitute a func that advances a fake clock or simply records calls,
// instead of a real time.Sleep.
type SleepFunc func(time.Duration)

func defaultSleepFunc(d time.Duration) { time.Sleep(d) }

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SetSleepFunc overrides the sleep implementation C8 uses, for testing.
func (c *Controller) SetSleepFunc(fn SleepFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeper = fn
}
