package sdi12

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-sdi12/internal/sim"
	"github.com/arloliu/go-sdi12/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, l logger.Logger, opts ...Option) (*responseReader, *sim.Bus, *sim.Clock) {
	t.Helper()

	clock := sim.NewClock()
	bus := sim.NewBus(clock)
	cfg := newTestConfig(t, clock, opts...)
	require.NoError(t, bus.Configure(cfg.SerialConfig()))

	if l == nil {
		l = cfg.GetLogger()
	}

	return newResponseReader(bus, cfg, l, newDriverMetrics()), bus, clock
}

func TestReadUntil_FirstLine(t *testing.T) {
	r, bus, clock := newTestReader(t, nil)
	bus.Inject([]byte("0+1.5\r\n0+2\r\n"), 30*time.Millisecond)

	line, ok := r.readUntil(context.Background(), clock.Now().Add(time.Second), "")
	require.True(t, ok)
	assert.Equal(t, "0+1.5", line)

	// Data is seen on the first poll after it arrives.
	assert.Equal(t, DefaultPollInterval, clock.Elapsed())
}

func TestReadUntil_Termination(t *testing.T) {
	r, bus, clock := newTestReader(t, nil)
	bus.Inject([]byte("0+1\r\n"), 0)
	bus.Inject([]byte("0-2\r\n"), 150*time.Millisecond)
	bus.Inject([]byte("END\r\n"), 320*time.Millisecond)
	bus.Inject([]byte("late\r\n"), 330*time.Millisecond)

	line, ok := r.readUntil(context.Background(), clock.Now().Add(time.Second), "END")
	require.True(t, ok)
	assert.Equal(t, "0+1\n0-2\nEND", line)
}

func TestReadUntil_TerminationNeverSeen(t *testing.T) {
	r, bus, clock := newTestReader(t, nil)
	bus.Inject([]byte("0+1\r\n"), 0)
	bus.Inject([]byte("0+2\r\n"), 200*time.Millisecond)

	line, ok := r.readUntil(context.Background(), clock.Now().Add(500*time.Millisecond), "END")
	require.True(t, ok)
	assert.Equal(t, "0+1\n0+2", line)
	assert.Equal(t, 500*time.Millisecond, clock.Elapsed())
}

func TestReadUntil_TimeoutBoundary(t *testing.T) {
	for _, timeout := range []time.Duration{0, 50 * time.Millisecond, 250 * time.Millisecond, time.Second} {
		r, _, clock := newTestReader(t, nil)

		start := clock.Now()
		line, ok := r.readUntil(context.Background(), start.Add(timeout), "")
		elapsed := since(clock, start)

		assert.False(t, ok, "timeout %v", timeout)
		assert.Empty(t, line)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.LessOrEqual(t, elapsed, timeout+DefaultPollInterval)
	}
}

func TestReadUntil_DiscardsUndecodableLine(t *testing.T) {
	ml := logger.NewMockLogger()
	ml.On("Warn", "sdi12: discard undecodable line", mock.Anything).Return().Once()

	r, bus, clock := newTestReader(t, ml)
	bus.Inject([]byte("0\xff\xfe+1\r\n"), 0)
	bus.Inject([]byte("0+2\r\n"), 0)

	line, ok := r.readUntil(context.Background(), clock.Now().Add(time.Second), "")
	require.True(t, ok)
	assert.Equal(t, "0+2", line)
	assert.Equal(t, uint64(1), r.metrics.DecodeErrCount.Load())

	ml.AssertExpectations(t)
}

func TestReadUntil_OnlyUndecodable(t *testing.T) {
	ml := logger.NewMockLogger()
	ml.On("Warn", "sdi12: discard undecodable line", mock.Anything).Return()

	r, bus, clock := newTestReader(t, ml)
	bus.Inject([]byte{0x80, '\n'}, 0)

	_, ok := r.readUntil(context.Background(), clock.Now().Add(200*time.Millisecond), "")
	assert.False(t, ok)
}

func TestReadUntil_SettleDelay(t *testing.T) {
	r, bus, clock := newTestReader(t, nil, WithSettleDelay(40*time.Millisecond))
	bus.Inject([]byte("0\r\n"), 0)

	line, ok := r.readUntil(context.Background(), clock.Now().Add(time.Second), "")
	require.True(t, ok)
	assert.Equal(t, "0", line)
	assert.Equal(t, 40*time.Millisecond, clock.Elapsed())
}

func TestReadUntil_ContextCanceled(t *testing.T) {
	r, bus, clock := newTestReader(t, nil)
	bus.Inject([]byte("0\r\n"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := r.readUntil(ctx, clock.Now().Add(time.Second), "")
	assert.False(t, ok)
	assert.Zero(t, clock.Elapsed())
}

func TestDecodeLine(t *testing.T) {
	line, err := decodeLine([]byte("0+1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "0+1", line)

	line, err = decodeLine([]byte("0+1"))
	require.NoError(t, err)
	assert.Equal(t, "0+1", line)

	_, err = decodeLine([]byte{'0', 0xC3})
	require.ErrorIs(t, err, ErrDecode)
}
