package sim

import (
	"testing"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSerial = hal.SerialConfig{BaudRate: 1200, DataBits: 7, Parity: hal.ParityEven, StopBits: 1}

func TestBus_Dispatch(t *testing.T) {
	clock := NewClock()
	bus := NewBus(clock, &Sensor{Address: '0'}, &Sensor{Address: '1', Values: []string{"+1", "-2"}})
	require.NoError(t, bus.Configure(testSerial))

	_, err := bus.Write([]byte("1D0!"))
	require.NoError(t, err)

	assert.Equal(t, len("1+1-2\r\n"), bus.Available())
	line, err := bus.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "1+1-2\r\n", string(line))
	assert.Zero(t, bus.Available())

	line, err = bus.ReadLine()
	require.NoError(t, err)
	assert.Nil(t, line)
}

func TestBus_RejectsWrongFraming(t *testing.T) {
	bus := NewBus(NewClock())

	err := bus.Configure(hal.SerialConfig{BaudRate: 9600, DataBits: 8, Parity: hal.ParityNone, StopBits: 1})
	require.ErrorIs(t, err, ErrBadFraming)

	_, err = bus.Write([]byte("0!"))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestBus_ConfigureFlushes(t *testing.T) {
	clock := NewClock()
	bus := NewBus(clock, &Sensor{Address: '0'})
	require.NoError(t, bus.Configure(testSerial))

	_, err := bus.Write([]byte("0!"))
	require.NoError(t, err)
	require.Positive(t, bus.Available())

	require.NoError(t, bus.Deinit())
	assert.Zero(t, bus.Available())
	require.NoError(t, bus.Configure(testSerial))
	assert.Zero(t, bus.Available())
	assert.Equal(t, 1, bus.Deinits())
}

func TestBus_DelayedReplyAndServiceRequest(t *testing.T) {
	clock := NewClock()
	bus := NewBus(clock, &Sensor{Address: '2', WaitSeconds: 5, Values: []string{"+1"}, ServiceRequestAfter: time.Second, ResponseDelay: 20 * time.Millisecond})
	require.NoError(t, bus.Configure(testSerial))

	_, err := bus.Write([]byte("2M!"))
	require.NoError(t, err)
	assert.Zero(t, bus.Available())

	clock.Advance(20 * time.Millisecond)
	line, err := bus.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "20051\r\n", string(line))
	assert.Zero(t, bus.Available())

	clock.Advance(time.Second)
	line, err = bus.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "2\r\n", string(line))
}

func TestBus_QueryAndSilent(t *testing.T) {
	clock := NewClock()
	bus := NewBus(clock, &Sensor{Address: 'x'})
	bus.Attach(&Sensor{Address: 'y', Silent: true})
	require.NoError(t, bus.Configure(testSerial))

	_, err := bus.Write([]byte("?!"))
	require.NoError(t, err)
	line, _ := bus.ReadLine()
	assert.Equal(t, "x\r\n", string(line))

	_, err = bus.Write([]byte("y!"))
	require.NoError(t, err)
	assert.Zero(t, bus.Available())
	assert.Equal(t, []string{"?!", "y!"}, bus.Commands())
}

func TestSensor_Chunks(t *testing.T) {
	s := &Sensor{Address: '0', Values: []string{"+1", "+2", "+3"}, ValuesPerReply: 2}

	reply, _, ok := s.respond("D0")
	require.True(t, ok)
	assert.Equal(t, "0+1+2", reply)

	reply, _, _ = s.respond("D1")
	assert.Equal(t, "0+3", reply)

	reply, _, _ = s.respond("D2")
	assert.Equal(t, "0", reply)

	reply, _, _ = s.respond("C")
	assert.Equal(t, "000003", reply)
}

func TestClockAndPin(t *testing.T) {
	clock := NewClock()
	pin := NewPin("tx", clock)

	require.NoError(t, pin.Set(false))
	clock.Sleep(12 * time.Millisecond)
	require.NoError(t, pin.Set(true))

	events := pin.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 12*time.Millisecond, events[1].At.Sub(events[0].At))
	assert.Equal(t, []time.Duration{12 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, "tx", pin.Name())

	pin.Reset()
	_, ok := pin.Level()
	assert.False(t, ok)
}
