package hwio

import (
	"fmt"
	"sync"

	"github.com/arloliu/go-sdi12/hal"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the periph.io host drivers. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = fmt.Errorf("hwio: initialize host drivers: %w", err)
		}
	})

	return initErr
}

// Pin is a GPIO output.
type Pin struct {
	pin gpio.PinOut
}

var _ hal.Pin = (*Pin)(nil)

// NewPin wraps an already acquired periph.io output.
func NewPin(p gpio.PinOut) *Pin {
	return &Pin{pin: p}
}

// OpenPin looks up a GPIO by name ("GPIO17", "17", "P1_11") and drives it to
// initial.
func OpenPin(name string, initial bool) (*Pin, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hwio: no GPIO named %q", name)
	}

	pin := NewPin(p)
	if err := pin.Set(initial); err != nil {
		return nil, err
	}

	return pin, nil
}

func (p *Pin) Set(high bool) error {
	if err := p.pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("hwio: set %s: %w", p.pin, err)
	}

	return nil
}

// String returns the GPIO name.
func (p *Pin) String() string {
	return p.pin.String()
}
