package clock

import "time"

// Clock provides the current time; cooldowns and match timing read through it
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Elapsed returns the time since t according to c, never negative
func Elapsed(c Clock, t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	d := c.Now().Sub(t)
	if d < 0 {
		return 0
	}
	return d
}
