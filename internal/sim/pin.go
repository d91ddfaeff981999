package sim

import (
	"sync"
	"time"

	"github.com/arloliu/go-sdi12/hal"
)

// PinEvent is one recorded level change.
type PinEvent struct {
	High bool
	At   time.Time
}

// Pin is a hal.Pin that records every Set call.
type Pin struct {
	mu     sync.Mutex
	name   string
	clock  hal.Clock
	events []PinEvent
	err    error
}

var _ hal.Pin = (*Pin)(nil)

// NewPin creates a recording pin stamped by clock.
func NewPin(name string, clock hal.Clock) *Pin {
	return &Pin{name: name, clock: clock}
}

// Name returns the pin name.
func (p *Pin) Name() string { return p.name }

// FailWith makes subsequent Set calls return err. A nil err clears the failure.
func (p *Pin) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
}

func (p *Pin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, PinEvent{High: high, At: p.clock.Now()})

	return nil
}

// Events returns a copy of the recorded level changes.
func (p *Pin) Events() []PinEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PinEvent, len(p.events))
	copy(out, p.events)

	return out
}

// Levels returns the recorded levels in order.
func (p *Pin) Levels() []bool {
	events := p.Events()
	levels := make([]bool, len(events))
	for i, ev := range events {
		levels[i] = ev.High
	}

	return levels
}

// Level returns the last level set, and false if Set was never called.
func (p *Pin) Level() (high bool, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.events) == 0 {
		return false, false
	}

	return p.events[len(p.events)-1].High, true
}

// Reset forgets all recorded events.
func (p *Pin) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = nil
}
