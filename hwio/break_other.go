//go:build !linux && !darwin && !freebsd

package hwio

import (
	"errors"
)

var errBreakUnsupported = errors.New("hwio: tty break is not supported on this platform")

type ttyBreakOps struct{}

func (ttyBreakOps) open(string) (int, error)  { return -1, errBreakUnsupported }
func (ttyBreakOps) setBreak(int, bool) error { return errBreakUnsupported }
func (ttyBreakOps) close(int) error          { return nil }
