package sdi12

import (
	"fmt"

	"github.com/arloliu/go-sdi12/hal"
)

// DirectionController switches a half-duplex line between driving and listening.
//
// The variant is chosen once, when the driver is configured. Only pin levels
// change per transaction.
type DirectionController interface {
	// SetTransmit enables the line driver.
	SetTransmit() error
	// SetReceive releases the line and enables the receiver.
	SetReceive() error
	// Close leaves the controller listening. Errors are ignored.
	Close()
}

// NoDirectionControl is used with transceivers that turn the line around on
// their own, or with a direct open-drain connection.
type NoDirectionControl struct{}

var _ DirectionController = NoDirectionControl{}

func (NoDirectionControl) SetTransmit() error { return nil }
func (NoDirectionControl) SetReceive() error  { return nil }
func (NoDirectionControl) Close()             {}

// SingleDirectionPin drives one pin that enables the line driver at its
// transmit level and the receiver at the opposite level (a tied DE/RE pair).
type SingleDirectionPin struct {
	pin           hal.Pin
	transmitLevel bool
}

var _ DirectionController = (*SingleDirectionPin)(nil)

// NewSingleDirectionPin creates a controller that drives pin high to transmit.
func NewSingleDirectionPin(pin hal.Pin) *SingleDirectionPin {
	return &SingleDirectionPin{pin: pin, transmitLevel: true}
}

// NewSingleDirectionPinLevel creates a controller that drives pin to
// transmitLevel to transmit.
func NewSingleDirectionPinLevel(pin hal.Pin, transmitLevel bool) *SingleDirectionPin {
	return &SingleDirectionPin{pin: pin, transmitLevel: transmitLevel}
}

func (d *SingleDirectionPin) SetTransmit() error {
	if err := d.pin.Set(d.transmitLevel); err != nil {
		return fmt.Errorf("%w: direction pin: %w", ErrTransport, err)
	}

	return nil
}

func (d *SingleDirectionPin) SetReceive() error {
	if err := d.pin.Set(!d.transmitLevel); err != nil {
		return fmt.Errorf("%w: direction pin: %w", ErrTransport, err)
	}

	return nil
}

func (d *SingleDirectionPin) Close() {
	_ = d.pin.Set(!d.transmitLevel)
}

// DualPinLevels holds the active levels of a drive/receive pin pair.
type DualPinLevels struct {
	// DriveActive is the drive pin level that enables the line driver.
	DriveActive bool
	// ReceiveActive is the receive pin level that enables the receiver.
	ReceiveActive bool
}

// DefaultDualPinLevels matches the common RS-485 style transceiver: an
// active-high driver enable and an active-low receiver enable.
var DefaultDualPinLevels = DualPinLevels{DriveActive: true, ReceiveActive: false}

// DualDirectionPins drives independent drive-enable and receive-enable pins.
//
// While transmitting the driver is enabled and the receiver disabled; while
// receiving it is the other way around.
type DualDirectionPins struct {
	drive   hal.Pin
	receive hal.Pin
	levels  DualPinLevels
}

var _ DirectionController = (*DualDirectionPins)(nil)

// NewDualDirectionPins creates a controller for a drive/receive pin pair.
func NewDualDirectionPins(drive, receive hal.Pin, levels DualPinLevels) *DualDirectionPins {
	return &DualDirectionPins{drive: drive, receive: receive, levels: levels}
}

// Levels returns the configured active levels.
func (d *DualDirectionPins) Levels() DualPinLevels { return d.levels }

func (d *DualDirectionPins) SetTransmit() error {
	// receiver off first so our own echo is not read back
	if err := d.receive.Set(!d.levels.ReceiveActive); err != nil {
		return fmt.Errorf("%w: receive pin: %w", ErrTransport, err)
	}
	if err := d.drive.Set(d.levels.DriveActive); err != nil {
		return fmt.Errorf("%w: drive pin: %w", ErrTransport, err)
	}

	return nil
}

func (d *DualDirectionPins) SetReceive() error {
	if err := d.drive.Set(!d.levels.DriveActive); err != nil {
		return fmt.Errorf("%w: drive pin: %w", ErrTransport, err)
	}
	if err := d.receive.Set(d.levels.ReceiveActive); err != nil {
		return fmt.Errorf("%w: receive pin: %w", ErrTransport, err)
	}

	return nil
}

func (d *DualDirectionPins) Close() {
	_ = d.drive.Set(!d.levels.DriveActive)
	_ = d.receive.Set(d.levels.ReceiveActive)
}
