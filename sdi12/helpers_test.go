package sdi12

import (
	"testing"
	"time"

	"github.com/arloliu/go-sdi12/internal/sim"
	"github.com/arloliu/go-sdi12/logger"
	"github.com/stretchr/testify/require"
)

// testBench bundles a driver with the simulated hardware behind it.
type testBench struct {
	driver *Driver
	bus    *sim.Bus
	clock  *sim.Clock
	tx     *sim.Pin
	cfg    *DriverConfig
}

// newTestConfig creates a DriverConfig on a manual clock with a quiet logger.
func newTestConfig(t *testing.T, clock *sim.Clock, opts ...Option) *DriverConfig {
	t.Helper()

	defaults := []Option{
		WithClock(clock),
		WithLogger(logger.NewSlogWriter(testWriter{t}, logger.ErrorLevel, false, false)),
	}

	cfg, err := NewDriverConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newTestBench creates a driver on a simulated bus with sensors attached.
func newTestBench(t *testing.T, sensors []*sim.Sensor, opts ...Option) *testBench {
	t.Helper()

	clock := sim.NewClock()
	bus := sim.NewBus(clock, sensors...)
	tx := sim.NewPin("tx", clock)
	cfg := newTestConfig(t, clock, opts...)

	d, err := NewDriver(bus, tx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return &testBench{driver: d, bus: bus, clock: clock, tx: tx, cfg: cfg}
}

// newTestSensor returns a responsive sensor at addr.
func newTestSensor(addr byte) *sim.Sensor {
	return &sim.Sensor{
		Address:        addr,
		Identification: "13ACME    PRB-10001extra",
		WaitSeconds:    2,
		Values:         []string{"+3.1", "-7.26", "+12"},
	}
}

// since returns the manual clock time elapsed since start.
func since(clock *sim.Clock, start time.Time) time.Duration {
	return clock.Now().Sub(start)
}

// testWriter routes log output to t.Log.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}
