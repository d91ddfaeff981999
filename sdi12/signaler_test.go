package sdi12

import (
	"errors"
	"testing"
	"time"

	"github.com/arloliu/go-sdi12/internal/sim"
	"github.com/arloliu/go-sdi12/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSignaler(t *testing.T, opts ...Option) (*lineSignaler, *sim.Bus, *sim.Pin, *sim.Clock) {
	t.Helper()

	return newTestSignalerOn(t, sim.NewClock(), opts...)
}

func TestWakeAndSend_Timing(t *testing.T) {
	s, bus, tx, clock := newTestSignaler(t)

	require.NoError(t, s.wakeAndSend("0M!"))

	breakDur := 12499500 * time.Nanosecond
	markDur := DefaultCharPeriod

	events := tx.Events()
	require.Len(t, events, 2)
	assert.False(t, events[0].High, "break")
	assert.Equal(t, sim.Epoch, events[0].At)
	assert.True(t, events[1].High, "mark")
	assert.Equal(t, sim.Epoch.Add(breakDur), events[1].At)

	cfgTimes := bus.ConfigureTimes()
	require.Len(t, cfgTimes, 1)
	assert.Equal(t, sim.Epoch.Add(breakDur+markDur), cfgTimes[0])

	writes := bus.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "0M!", writes[0].Command)
	assert.Equal(t, cfgTimes[0], writes[0].At)

	assert.Equal(t, []time.Duration{breakDur, markDur, 3 * DefaultCharPeriod}, clock.Sleeps())

	sc := bus.Config()
	assert.Equal(t, 1200, sc.BaudRate)
	assert.Equal(t, 7, sc.DataBits)
}

func TestWakeAndSend_DrainUsesConfiguredCharPeriod(t *testing.T) {
	s, _, _, clock := newTestSignaler(t, WithCharPeriod(10*time.Millisecond))

	require.NoError(t, s.wakeAndSend("1D0!"))

	assert.Equal(t, []time.Duration{
		15 * time.Millisecond,
		10 * time.Millisecond,
		40 * time.Millisecond,
	}, clock.Sleeps())
}

func TestWakeAndSend_NoPostWriteWait(t *testing.T) {
	s, _, _, clock := newTestSignaler(t, WithPostWriteWait(false))

	require.NoError(t, s.wakeAndSend("1D0!"))
	assert.Len(t, clock.Sleeps(), 2)
}

func TestWakeAndSend_ReleasesPortFirst(t *testing.T) {
	s, bus, _, _ := newTestSignaler(t)

	require.NoError(t, s.wakeAndSend("0!"))
	require.NoError(t, s.wakeAndSend("0!"))

	assert.Equal(t, 1, bus.Deinits())
	assert.True(t, bus.Configured())
	assert.Len(t, bus.ConfigureTimes(), 2)
}

func TestWakeAndSend_DirectionSequence(t *testing.T) {
	clock := sim.NewClock()
	drive := sim.NewPin("drive", clock)
	recv := sim.NewPin("receive", clock)
	dir := NewDualDirectionPins(drive, recv, DefaultDualPinLevels)

	s, bus, _, _ := newTestSignalerOn(t, clock, WithDirection(dir))
	require.NoError(t, s.wakeAndSend("0I!"))

	driveEvents := drive.Events()
	require.Len(t, driveEvents, 2)
	assert.True(t, driveEvents[0].High)
	assert.Equal(t, sim.Epoch, driveEvents[0].At)

	// The driver is released only after the command has drained.
	assert.False(t, driveEvents[1].High)
	assert.Equal(t, bus.Writes()[0].At.Add(3*DefaultCharPeriod), driveEvents[1].At)

	assert.Equal(t, []bool{true, false}, recv.Levels())
}

func TestWakeAndSend_ConfigureFailure(t *testing.T) {
	clock := sim.NewClock()
	dirPin := sim.NewPin("dir", clock)

	s, bus, _, _ := newTestSignalerOn(t, clock, WithDirection(NewSingleDirectionPin(dirPin)))
	uartErr := errors.New("uart busy")
	bus.FailConfigure(uartErr)

	err := s.wakeAndSend("0!")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, uartErr)

	high, _ := dirPin.Level()
	assert.False(t, high, "line must be left listening")
	assert.Empty(t, bus.Writes())
}

func TestWakeAndSend_TxPinFailure(t *testing.T) {
	s, bus, tx, _ := newTestSignaler(t)
	tx.FailWith(errors.New("pin claimed"))

	err := s.wakeAndSend("0!")
	require.ErrorIs(t, err, ErrTransport)
	assert.Empty(t, bus.ConfigureTimes())
}

func newTestSignalerOn(t *testing.T, clock *sim.Clock, opts ...Option) (*lineSignaler, *sim.Bus, *sim.Pin, *sim.Clock) {
	t.Helper()

	bus := sim.NewBus(clock)
	tx := sim.NewPin("tx", clock)
	cfg := newTestConfig(t, clock, opts...)

	return newLineSignaler(bus, tx, cfg, logger.GetLogger()), bus, tx, clock
}
