package sdi12

import (
	"fmt"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
)

// TX line levels while the UART is released. Low is the spacing (break)
// level on the data line, high the idle mark.
const (
	breakLevel = false
	markLevel  = true
)

// lineSignaler produces the break/mark wake sequence and sends a command.
//
// It is NOT goroutine-safe; the owning Transport runs one transaction at a time.
type lineSignaler struct {
	port      hal.Transceiver
	tx        hal.Pin
	direction DirectionController
	cfg       *DriverConfig
	clock     hal.Clock
	logger    logger.Logger
}

func newLineSignaler(port hal.Transceiver, tx hal.Pin, cfg *DriverConfig, l logger.Logger) *lineSignaler {
	return &lineSignaler{
		port:      port,
		tx:        tx,
		direction: cfg.Direction(),
		cfg:       cfg,
		clock:     cfg.Clock(),
		logger:    l,
	}
}

// wakeAndSend releases the UART, sends break and mark on the TX line,
// brings the UART up at 1200 7E1, writes cmd and turns the line around.
//
// The sleeps are protocol timing, not pacing: none of them may be shortened
// or reordered.
func (s *lineSignaler) wakeAndSend(cmd Command) error {
	if err := s.port.Deinit(); err != nil {
		s.logger.Debug("sdi12: release serial port", "error", err)
	}

	if err := s.direction.SetTransmit(); err != nil {
		return s.abort(err)
	}

	if err := s.tx.Set(breakLevel); err != nil {
		return s.abort(fmt.Errorf("%w: tx break: %w", ErrTransport, err))
	}
	s.clock.Sleep(s.cfg.BreakDuration())

	if err := s.tx.Set(markLevel); err != nil {
		return s.abort(fmt.Errorf("%w: tx mark: %w", ErrTransport, err))
	}
	s.clock.Sleep(s.cfg.MarkDuration())

	if err := s.port.Configure(s.cfg.SerialConfig()); err != nil {
		return s.abort(fmt.Errorf("%w: configure serial: %w", ErrTransport, err))
	}

	n, err := s.port.Write([]byte(cmd))
	if err != nil {
		return s.abort(fmt.Errorf("%w: write %q: %w", ErrTransport, cmd, err))
	}
	if n != len(cmd) {
		return s.abort(fmt.Errorf("%w: short write %q: %d of %d bytes", ErrTransport, cmd, n, len(cmd)))
	}

	// Write may return while the bytes are still in the UART FIFO; turning
	// the line around now would cut the command short.
	if s.cfg.PostWriteWait() {
		s.clock.Sleep(s.cfg.DrainDuration(len(cmd)))
	}

	return s.direction.SetReceive()
}

// abort leaves the line listening after a failed wake.
func (s *lineSignaler) abort(err error) error {
	_ = s.direction.SetReceive()
	return err
}
