package sdi12

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
)

// Protocol constants.
const (
	BaudRate = 1200
	DataBits = 7
	StopBits = 1
	Parity   = hal.ParityEven

	// MaxDataRetrievals bounds the "aD0!".."aD9!" loop of a measurement.
	// Sensors whose value count is never reached stop here with a partial result.
	MaxDataRetrievals = 10

	// readTimeoutChars is the UART line timeout in character periods.
	readTimeoutChars = 75
)

// Default timing values.
const (
	DefaultCharPeriod         = 8333 * time.Microsecond
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultServiceRequestPoll = 10 * time.Millisecond
	DefaultResponseTimeout    = time.Second
	DefaultSettleDelay        = time.Duration(0)
	DefaultPostWriteWait      = true
)

// Defaults of a MeasureRequest.
const (
	DefaultMeasureKind       = "M"
	DefaultMeasureDigitCount = 1
)

// Option range limits.
const (
	MinCharPeriod      = 100 * time.Microsecond
	MaxCharPeriod      = 100 * time.Millisecond
	MinPollInterval    = 100 * time.Microsecond
	MaxPollInterval    = time.Second
	MaxResponseTimeout = time.Minute
	MaxSettleDelay     = 10 * time.Second
)

// The break lasts breakNum/breakDen character periods.
const (
	breakNum = 3
	breakDen = 2
)

// DriverConfig holds the timing and wiring configuration of a Transport.
type DriverConfig struct {
	charPeriod         time.Duration
	postWriteWait      bool
	settleDelay        time.Duration
	pollInterval       time.Duration
	serviceRequestPoll time.Duration
	responseTimeout    time.Duration

	direction DirectionController
	clock     hal.Clock
	traceHook TraceHook

	logger logger.Logger
}

// NewDriverConfig creates a configuration with protocol defaults, then applies
// opts in order.
func NewDriverConfig(opts ...Option) (*DriverConfig, error) {
	cfg := &DriverConfig{
		charPeriod:         DefaultCharPeriod,
		postWriteWait:      DefaultPostWriteWait,
		settleDelay:        DefaultSettleDelay,
		pollInterval:       DefaultPollInterval,
		serviceRequestPoll: DefaultServiceRequestPoll,
		responseTimeout:    DefaultResponseTimeout,
		direction:          NoDirectionControl{},
		clock:              hal.SystemClock{},
		logger:             logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// CharPeriod returns the duration of one character on the wire.
func (cfg *DriverConfig) CharPeriod() time.Duration { return cfg.charPeriod }

// BreakDuration returns 1.5 character periods.
func (cfg *DriverConfig) BreakDuration() time.Duration {
	return cfg.charPeriod * breakNum / breakDen
}

// MarkDuration returns one character period.
func (cfg *DriverConfig) MarkDuration() time.Duration { return cfg.charPeriod }

// PostWriteWait reports whether the transport waits for a written command to
// drain before turning the line around.
func (cfg *DriverConfig) PostWriteWait() bool { return cfg.postWriteWait }

// DrainDuration returns the time n characters need on the wire.
func (cfg *DriverConfig) DrainDuration(n int) time.Duration {
	return cfg.charPeriod * time.Duration(n)
}

// SettleDelay returns the quiet period applied after each reply.
func (cfg *DriverConfig) SettleDelay() time.Duration { return cfg.settleDelay }

// PollInterval returns the reply polling interval.
func (cfg *DriverConfig) PollInterval() time.Duration { return cfg.pollInterval }

// ServiceRequestPoll returns the polling interval while waiting for a
// measurement's service request.
func (cfg *DriverConfig) ServiceRequestPoll() time.Duration { return cfg.serviceRequestPoll }

// ResponseTimeout returns the reply timeout used by Driver operations.
func (cfg *DriverConfig) ResponseTimeout() time.Duration { return cfg.responseTimeout }

// SerialConfig returns the 1200 7E1 data session parameters.
func (cfg *DriverConfig) SerialConfig() hal.SerialConfig {
	return hal.SerialConfig{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   Parity,
		StopBits: StopBits,
		Timeout:  cfg.DrainDuration(readTimeoutChars),
	}
}

// Direction returns the direction controller.
func (cfg *DriverConfig) Direction() DirectionController { return cfg.direction }

// Clock returns the clock used for all timing.
func (cfg *DriverConfig) Clock() hal.Clock { return cfg.clock }

// GetLogger returns the configured logger.
func (cfg *DriverConfig) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a DriverConfig.
type Option interface {
	apply(*DriverConfig) error
}

type optFunc func(*DriverConfig) error

func (f optFunc) apply(cfg *DriverConfig) error { return f(cfg) }

// WithCharPeriod sets the character period that scales the break, the mark
// and the post-write drain wait. The default is 8333µs (1200 baud, 10 bits).
func WithCharPeriod(d time.Duration) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if d < MinCharPeriod || d > MaxCharPeriod {
			return fmt.Errorf("sdi12: char period %v out of range [%v, %v]", d, MinCharPeriod, MaxCharPeriod)
		}
		cfg.charPeriod = d

		return nil
	})
}

// WithPostWriteWait enables or disables the drain wait after writing a command.
// Enabled by default; disable only for UARTs whose Write blocks until the
// last stop bit is out.
func WithPostWriteWait(enabled bool) Option {
	return optFunc(func(cfg *DriverConfig) error {
		cfg.postWriteWait = enabled

		return nil
	})
}

// WithSettleDelay sets a quiet period applied after every reply, for sensors
// that need time before the next break. Disabled (0) by default.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("sdi12: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithPollInterval sets how often the reply reader checks for received bytes.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("sdi12: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithServiceRequestPoll sets how often the line is checked for a service
// request while a measurement is in progress.
func WithServiceRequestPoll(d time.Duration) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("sdi12: service request poll %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.serviceRequestPoll = d

		return nil
	})
}

// WithResponseTimeout sets the reply timeout of Driver operations.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if d <= 0 || d > MaxResponseTimeout {
			return fmt.Errorf("sdi12: response timeout %v out of range (0, %v]", d, MaxResponseTimeout)
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithDirection selects the direction controller. The default is
// NoDirectionControl.
func WithDirection(dc DirectionController) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if dc == nil {
			return errors.New("sdi12: direction controller must not be nil")
		}
		cfg.direction = dc

		return nil
	})
}

// WithClock replaces the wall clock.
func WithClock(c hal.Clock) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if c == nil {
			return errors.New("sdi12: clock must not be nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithTraceHook installs a callback that observes every command and reply.
func WithTraceHook(h TraceHook) Option {
	return optFunc(func(cfg *DriverConfig) error {
		cfg.traceHook = h

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *DriverConfig) error {
		if l == nil {
			return errors.New("sdi12: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
