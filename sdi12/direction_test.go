package sdi12

import (
	"errors"
	"testing"

	"github.com/arloliu/go-sdi12/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoDirectionControl(t *testing.T) {
	var dc DirectionController = NoDirectionControl{}

	require.NoError(t, dc.SetTransmit())
	require.NoError(t, dc.SetReceive())
	dc.Close()
}

func TestSingleDirectionPin(t *testing.T) {
	pin := sim.NewPin("dir", sim.NewClock())
	dc := NewSingleDirectionPin(pin)

	require.NoError(t, dc.SetTransmit())
	require.NoError(t, dc.SetReceive())
	dc.Close()

	assert.Equal(t, []bool{true, false, false}, pin.Levels())
}

func TestSingleDirectionPin_ActiveLow(t *testing.T) {
	pin := sim.NewPin("dir", sim.NewClock())
	dc := NewSingleDirectionPinLevel(pin, false)

	require.NoError(t, dc.SetTransmit())
	high, _ := pin.Level()
	assert.False(t, high)

	dc.Close()
	high, _ = pin.Level()
	assert.True(t, high)
}

func TestDualDirectionPins(t *testing.T) {
	tests := []struct {
		name   string
		levels DualPinLevels
	}{
		{"default", DefaultDualPinLevels},
		{"both active high", DualPinLevels{DriveActive: true, ReceiveActive: true}},
		{"both active low", DualPinLevels{DriveActive: false, ReceiveActive: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := sim.NewClock()
			drive := sim.NewPin("drive", clock)
			recv := sim.NewPin("receive", clock)
			dc := NewDualDirectionPins(drive, recv, tt.levels)
			assert.Equal(t, tt.levels, dc.Levels())

			require.NoError(t, dc.SetTransmit())
			d, _ := drive.Level()
			r, _ := recv.Level()
			assert.Equal(t, tt.levels.DriveActive, d)
			assert.Equal(t, !tt.levels.ReceiveActive, r)

			require.NoError(t, dc.SetReceive())
			d, _ = drive.Level()
			r, _ = recv.Level()
			assert.Equal(t, !tt.levels.DriveActive, d)
			assert.Equal(t, tt.levels.ReceiveActive, r)

			require.NoError(t, dc.SetTransmit())
			dc.Close()
			d, _ = drive.Level()
			r, _ = recv.Level()
			assert.Equal(t, !tt.levels.DriveActive, d, "idle drive must be inactive")
			assert.Equal(t, tt.levels.ReceiveActive, r, "idle receive must be active")
		})
	}
}

func TestDirectionPins_Errors(t *testing.T) {
	clock := sim.NewClock()
	pinErr := errors.New("gpio busy")

	single := sim.NewPin("dir", clock)
	single.FailWith(pinErr)
	err := NewSingleDirectionPin(single).SetTransmit()
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, pinErr)

	drive := sim.NewPin("drive", clock)
	recv := sim.NewPin("receive", clock)
	dual := NewDualDirectionPins(drive, recv, DefaultDualPinLevels)

	drive.FailWith(pinErr)
	require.ErrorIs(t, dual.SetTransmit(), ErrTransport)
	require.ErrorIs(t, dual.SetReceive(), ErrTransport)

	// Close swallows errors.
	recv.FailWith(pinErr)
	dual.Close()
}
