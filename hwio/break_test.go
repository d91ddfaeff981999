package hwio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBreakOps records tty calls as strings.
type fakeBreakOps struct {
	calls    []string
	nextFD   int
	openErr  error
	breakErr error
}

func (f *fakeBreakOps) open(device string) (int, error) {
	if f.openErr != nil {
		return -1, f.openErr
	}
	f.nextFD++
	f.calls = append(f.calls, fmt.Sprintf("open %s=%d", device, f.nextFD))

	return f.nextFD, nil
}

func (f *fakeBreakOps) setBreak(fd int, on bool) error {
	f.calls = append(f.calls, fmt.Sprintf("break %d %v", fd, on))
	return f.breakErr
}

func (f *fakeBreakOps) close(fd int) error {
	f.calls = append(f.calls, fmt.Sprintf("close %d", fd))
	return nil
}

func newTestBreakLine() (*BreakLine, *fakeBreakOps) {
	ops := &fakeBreakOps{}
	b := NewBreakLine("/dev/ttyTEST0")
	b.ops = ops

	return b, ops
}

func TestBreakLine_WakeSequence(t *testing.T) {
	b, ops := newTestBreakLine()

	// idle line: mark is a no-op
	require.NoError(t, b.Set(true))
	assert.Empty(t, ops.calls)

	require.NoError(t, b.Set(false))
	require.NoError(t, b.Set(false))
	require.NoError(t, b.Set(true))

	require.NoError(t, b.Set(false))
	require.NoError(t, b.Set(true))

	assert.Equal(t, []string{
		"open /dev/ttyTEST0=1", "break 1 true",
		"break 1 false", "close 1",
		"open /dev/ttyTEST0=2", "break 2 true",
		"break 2 false", "close 2",
	}, ops.calls)
}

func TestBreakLine_OpenError(t *testing.T) {
	b, ops := newTestBreakLine()
	ops.openErr = errors.New("permission denied")

	err := b.Set(false)
	require.ErrorIs(t, err, ops.openErr)
	assert.Contains(t, err.Error(), "/dev/ttyTEST0")

	// nothing held, so ending the break does nothing
	require.NoError(t, b.Set(true))
	assert.Empty(t, ops.calls)
}

func TestBreakLine_IoctlErrorClosesDescriptor(t *testing.T) {
	b, ops := newTestBreakLine()
	ops.breakErr = errors.New("inappropriate ioctl for device")

	err := b.Set(false)
	require.ErrorIs(t, err, ops.breakErr)
	assert.Equal(t, []string{"open /dev/ttyTEST0=1", "break 1 true", "close 1"}, ops.calls)

	require.NoError(t, b.Set(true))
	assert.Len(t, ops.calls, 3)
}

func TestBreakLine_CloseEndsHeldBreak(t *testing.T) {
	b, ops := newTestBreakLine()

	require.NoError(t, b.Close())
	require.NoError(t, b.Set(false))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Equal(t, []string{"open /dev/ttyTEST0=1", "break 1 true", "break 1 false", "close 1"}, ops.calls)
}

func TestSerialPort_BreakLineSharesDevice(t *testing.T) {
	sp, _, _ := newTestPort(t)

	b := sp.BreakLine()
	assert.Equal(t, "/dev/ttyTEST0 break", b.String())
	assert.Equal(t, "/dev/ttyTEST0", b.device)
}
