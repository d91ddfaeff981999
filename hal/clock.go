package hal

import (
	"time"
)

// spinThreshold is the remainder below which SystemClock busy-waits instead
// of handing control back to the scheduler.
const spinThreshold = time.Millisecond

// SystemClock is the wall clock.
//
// Sleep never returns early: the bulk of the delay goes to time.Sleep and the
// final sub-millisecond part is spun, since break and mark durations on the
// bus are measured in fractions of a character period.
type SystemClock struct{}

var _ Clock = SystemClock{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for at least d.
func (SystemClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	end := time.Now().Add(d)
	if d > spinThreshold {
		time.Sleep(d - spinThreshold)
	}

	for time.Now().Before(end) { //nolint:revive // intentional spin
	}
}
