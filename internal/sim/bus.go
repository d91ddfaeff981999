package sim

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/arloliu/go-sdi12/hal"
)

var (
	// ErrNotConfigured is returned by Write on a released port.
	ErrNotConfigured = errors.New("sim: serial port not configured")
	// ErrBadFraming is returned by Configure for anything other than 1200 7E1.
	ErrBadFraming = errors.New("sim: sensors only understand 1200 7E1")
)

type pending struct {
	data []byte
	at   time.Time
}

// Write is one command written to the bus.
type Write struct {
	Command string
	At      time.Time
}

// Bus is a hal.Transceiver with simulated sensors attached.
//
// A command written to the bus is dispatched to the sensor at its address,
// whose reply becomes readable at the current clock time plus the sensor's
// response delay. Configure flushes everything not yet read, as a UART
// reinitialization does.
type Bus struct {
	mu      sync.Mutex
	clock   hal.Clock
	sensors []*Sensor

	configured   bool
	cfg          hal.SerialConfig
	configureErr error
	rx           []pending

	writes     []Write
	configures []time.Time
	deinits    int
}

var _ hal.Transceiver = (*Bus)(nil)

// NewBus creates a bus with sensors attached.
func NewBus(clock hal.Clock, sensors ...*Sensor) *Bus {
	return &Bus{clock: clock, sensors: sensors}
}

// Attach adds a sensor to the bus.
func (b *Bus) Attach(s *Sensor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sensors = append(b.sensors, s)
}

// FailConfigure makes Configure return err. A nil err clears the failure.
func (b *Bus) FailConfigure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.configureErr = err
}

// Inject queues raw bytes that become readable after delay.
func (b *Bus) Inject(data []byte, delay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rx = append(b.rx, pending{data: append([]byte(nil), data...), at: b.clock.Now().Add(delay)})
}

func (b *Bus) Configure(cfg hal.SerialConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configureErr != nil {
		return b.configureErr
	}
	if cfg.BaudRate != 1200 || cfg.DataBits != 7 || cfg.Parity != hal.ParityEven || cfg.StopBits != 1 {
		return ErrBadFraming
	}

	b.cfg = cfg
	b.configured = true
	b.rx = nil
	b.configures = append(b.configures, b.clock.Now())

	return nil
}

func (b *Bus) Deinit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configured {
		b.configured = false
		b.deinits++
	}

	return nil
}

func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return 0, ErrNotConfigured
	}

	cmd := string(p)
	now := b.clock.Now()
	b.writes = append(b.writes, Write{Command: cmd, At: now})

	if len(cmd) < 2 || cmd[len(cmd)-1] != '!' {
		return len(p), nil
	}

	for _, s := range b.sensors {
		if cmd != "?!" && s.Address != cmd[0] {
			continue
		}

		verb := cmd[1 : len(cmd)-1]
		if cmd == "?!" {
			verb = ""
		}
		reply, sr, ok := s.respond(verb)
		if !ok {
			break
		}
		at := now.Add(s.ResponseDelay)
		b.rx = append(b.rx, pending{data: []byte(reply + "\r\n"), at: at})
		if sr > 0 {
			b.rx = append(b.rx, pending{data: []byte(string(s.Address) + "\r\n"), at: at.Add(sr)})
		}

		break
	}

	return len(p), nil
}

func (b *Bus) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return 0
	}

	now := b.clock.Now()
	n := 0
	for _, p := range b.rx {
		if !p.at.After(now) {
			n += len(p.data)
		}
	}

	return n
}

// ReadLine returns ready bytes up to and including the first '\n'.
func (b *Bus) ReadLine() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, ErrNotConfigured
	}

	now := b.clock.Now()
	var line []byte
	for len(b.rx) > 0 && !b.rx[0].at.After(now) {
		head := &b.rx[0]
		idx := bytes.IndexByte(head.data, '\n')
		if idx < 0 {
			line = append(line, head.data...)
			b.rx = b.rx[1:]

			continue
		}

		line = append(line, head.data[:idx+1]...)
		head.data = head.data[idx+1:]
		if len(head.data) == 0 {
			b.rx = b.rx[1:]
		}

		break
	}

	return line, nil
}

// Writes returns the commands written so far.
func (b *Bus) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Write, len(b.writes))
	copy(out, b.writes)

	return out
}

// Commands returns the command strings written so far.
func (b *Bus) Commands() []string {
	writes := b.Writes()
	cmds := make([]string, len(writes))
	for i, w := range writes {
		cmds[i] = w.Command
	}

	return cmds
}

// ConfigureTimes returns the clock time of each successful Configure.
func (b *Bus) ConfigureTimes() []time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]time.Time, len(b.configures))
	copy(out, b.configures)

	return out
}

// Config returns the last applied serial configuration.
func (b *Bus) Config() hal.SerialConfig {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cfg
}

// Deinits returns how many times a configured port was released.
func (b *Bus) Deinits() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.deinits
}

// Configured reports whether the port is currently configured.
func (b *Bus) Configured() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.configured
}
