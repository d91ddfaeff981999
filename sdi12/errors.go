package sdi12

import "errors"

var (
	// ErrTransport indicates a controller-side failure: a pin could not be
	// driven, or the serial port could not be configured or written.
	// Retrying does not help, so it is the one error protocol operations return.
	ErrTransport = errors.New("sdi12: transport failure")

	// ErrMalformedReply indicates a reply whose length or content does not
	// match the expected fixed layout.
	ErrMalformedReply = errors.New("sdi12: malformed reply")

	// ErrDecode indicates a received chunk that is not valid text.
	ErrDecode = errors.New("sdi12: undecodable response")

	// ErrValueFormat indicates a data payload that does not start with a sign.
	ErrValueFormat = errors.New("sdi12: value payload must start with '+' or '-'")

	// ErrInvalidAddress indicates a character outside the SDI-12 address space.
	ErrInvalidAddress = errors.New("sdi12: invalid address")
)

var (
	// ErrConfigNil indicates that a nil DriverConfig was provided.
	ErrConfigNil = errors.New("sdi12: driver config is nil")

	// ErrTransceiverNil indicates that a nil transceiver or TX pin was provided.
	ErrTransceiverNil = errors.New("sdi12: transceiver and tx pin are required")
)
