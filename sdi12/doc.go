// Package sdi12 implements the master side of the SDI-12 sensor protocol.
//
// SDI-12 runs over a single half-duplex data line at 1200 baud, 7 data bits,
// even parity and one stop bit. Every transaction starts with an out-of-band
// wake sequence sent while the UART is released:
//
//   - break: the line is held at its spacing level for 1.5 character periods,
//   - mark:  the line is held at its idle level for one character period,
//
// after which the UART is brought up at 1200 7E1, the command is written, and
// the line is turned around to listen for the sensor's reply.
//
// # Layers
//
// A [Transport] owns the serial [hal.Transceiver], the TX [hal.Pin] and a
// [DirectionController]. Its Transact method is the protocol's unit of
// turnaround: wake, send, switch to receive, collect one reply line.
// A [Driver] builds the protocol operations on top of it:
//
//   - Probe          "a!"   acknowledge active
//   - Identify       "aI!"  send identification
//   - Measure        "aM!"  start measurement, wait, then "aD0!".."aD9!"
//   - ReadContinuous "aR0!" read continuous measurement
//   - ChangeAddress  "aAb!" change address
//   - QueryAddress   "?!"   address query
//
// # Direction control
//
// Three wiring schemes are supported through [DirectionController]:
// [NoDirectionControl] for transceivers that turn around on their own,
// [SingleDirectionPin] for a single DE/RE pin, and [DualDirectionPins] for
// separate drive and receive enables with independent active levels.
//
// # Errors
//
// Absence is the normal outcome on an SDI-12 bus: an unused address never
// answers. Timeouts, malformed replies, undecodable bytes and unparsable
// payloads are therefore reported as absent or partial results, logged, and
// counted in [DriverMetrics]. Only controller-side failures (pin or UART
// configuration, wrapped as [ErrTransport]) and context cancellation are
// returned as errors.
//
// A Driver is not goroutine-safe. The bus carries one transaction at a time,
// so callers sharing a Driver must serialize access themselves.
package sdi12
