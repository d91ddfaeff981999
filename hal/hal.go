// Package hal declares the hardware capabilities the sdi12 driver consumes.
//
// The driver never talks to a UART or a GPIO directly. Instead it is handed a
// [Transceiver] for the serial data session, a [Pin] for the transmit line while
// the UART is released, and optionally further pins for direction control.
// Implementations for Linux hosts live in the hwio package; tests use the
// simulated bus in internal/sim.
package hal

import (
	"time"
)

// Parity is the UART parity mode.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityOdd   Parity = 'O'
	ParityEven  Parity = 'E'
	ParityMark  Parity = 'M' // parity bit is always 1
	ParitySpace Parity = 'S' // parity bit is always 0
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return "unknown"
	}
}

// SerialConfig holds the framing parameters applied by [Transceiver.Configure].
type SerialConfig struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits int
	// Timeout bounds a single ReadLine call.
	Timeout time.Duration
}

// Transceiver is a serial port that can be released and re-acquired between
// transactions, so its TX line can be driven as a plain output pin in between.
type Transceiver interface {
	// Configure (re)initializes the port with the given framing.
	Configure(cfg SerialConfig) error
	// Deinit releases the port. Calling it on a released port is a no-op.
	Deinit() error
	// Write queues p for transmission. It may return before the bytes
	// have left the wire.
	Write(p []byte) (int, error)
	// Available returns the number of received bytes ready to be read.
	Available() int
	// ReadLine returns the next received line including its terminator,
	// or whatever arrived before the configured timeout. A nil slice means
	// nothing was read.
	ReadLine() ([]byte, error)
}

// Pin is a digital output. The TX line of the driver is a Pin too: a GPIO on
// the transceiver input, or the break control of the tty itself.
type Pin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool) error
}

// Clock provides time to the driver. Timing of the wake sequence and all
// polling loops goes through it.
type Clock interface {
	Now() time.Time
	// Sleep blocks for at least d.
	Sleep(d time.Duration)
}
