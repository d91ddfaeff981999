package hwio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-sdi12/hal"
)

// breakOps are the tty calls BreakLine makes.
type breakOps interface {
	open(device string) (int, error)
	setBreak(fd int, on bool) error
	close(fd int) error
}

// BreakLine controls the break condition of a tty's TX output.
//
// As a hal.Pin it follows the data line level: low starts a break and high
// ends it, leaving the line idle at mark. The UART keeps its TX pin the whole
// time, so the wake sequence needs no GPIO on the data line and works with
// USB serial adapters.
//
// The break is held on a descriptor of its own, since the driver releases the
// SerialPort before waking the bus.
type BreakLine struct {
	device string
	ops    breakOps

	mu   sync.Mutex
	fd   int
	held bool
}

var _ hal.Pin = (*BreakLine)(nil)

// NewBreakLine creates a BreakLine for device, e.g. "/dev/ttyAMA0".
func NewBreakLine(device string) *BreakLine {
	return &BreakLine{device: device, ops: ttyBreakOps{}}
}

// BreakLine returns a BreakLine on the port's device.
func (s *SerialPort) BreakLine() *BreakLine {
	return NewBreakLine(s.device)
}

// Set starts the break when high is false and ends it when high is true.
// Repeating the current level is a no-op.
func (b *BreakLine) Set(high bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if high {
		return b.release()
	}
	if b.held {
		return nil
	}

	fd, err := b.ops.open(b.device)
	if err != nil {
		return fmt.Errorf("hwio: open %s for break: %w", b.device, err)
	}
	if err := b.ops.setBreak(fd, true); err != nil {
		_ = b.ops.close(fd)
		return fmt.Errorf("hwio: start break on %s: %w", b.device, err)
	}
	b.fd, b.held = fd, true

	return nil
}

// Close ends a break still in progress.
func (b *BreakLine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.release()
}

func (b *BreakLine) release() error {
	if !b.held {
		return nil
	}
	b.held = false

	err := b.ops.setBreak(b.fd, false)
	if err != nil {
		err = fmt.Errorf("hwio: end break on %s: %w", b.device, err)
	}

	return errors.Join(err, b.ops.close(b.fd))
}

// String returns the tty device path.
func (b *BreakLine) String() string {
	return b.device + " break"
}
