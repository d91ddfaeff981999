// Package sim simulates an SDI-12 bus: a serial transceiver with sensors
// attached, output pins that record their level changes, and a manual clock.
//
// Nothing in this package sleeps. Time only moves when the code under test
// calls Clock.Sleep, so tests of multi-second measurements run instantly and
// timing can be asserted exactly.
package sim

import (
	"sync"
	"time"

	"github.com/arloliu/go-sdi12/hal"
)

// Epoch is the start time of every Clock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock is a hal.Clock that advances only on Sleep or Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

var _ hal.Clock = (*Clock)(nil)

// NewClock returns a clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Sleep records d and advances the clock by it.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// Advance moves the clock without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Elapsed returns the time since Epoch.
func (c *Clock) Elapsed() time.Duration {
	return c.Now().Sub(Epoch)
}

// Sleeps returns a copy of all recorded sleeps.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)

	return out
}
