//go:build linux || darwin || freebsd

package hwio

import (
	"golang.org/x/sys/unix"
)

type ttyBreakOps struct{}

func (ttyBreakOps) open(device string) (int, error) {
	return unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

func (ttyBreakOps) setBreak(fd int, on bool) error {
	req := uint(unix.TIOCCBRK)
	if on {
		req = unix.TIOCSBRK
	}

	return unix.IoctlSetInt(fd, req, 0)
}

func (ttyBreakOps) close(fd int) error {
	return unix.Close(fd)
}
