package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sensor answers the standard SDI-12 commands.
type Sensor struct {
	// Address is the current address. "aAb!" changes it.
	Address byte
	// Identification is the "aI!" reply without the leading address,
	// e.g. "13ACME    PRB-10001extra".
	Identification string
	// WaitSeconds is announced in measurement replies.
	WaitSeconds int
	// Values are returned by data commands, e.g. "+3.1", "-7.26".
	Values []string
	// ValuesPerReply splits Values over consecutive "aDn!" replies.
	// 0 puts all values into "aD0!".
	ValuesPerReply int
	// ServiceRequestAfter schedules a service request after a measurement
	// request. 0 disables it.
	ServiceRequestAfter time.Duration
	// ResponseDelay delays every reply.
	ResponseDelay time.Duration
	// Replies overrides the reply to a verb, e.g. Replies["D0"] = "0+1".
	// The reply must include the address; the bus appends CR LF.
	Replies map[string]string
	// Silent sensors never reply.
	Silent bool
}

// respond returns the reply to verb, and an optional service request delay.
func (s *Sensor) respond(verb string) (reply string, serviceRequest time.Duration, ok bool) {
	if s.Silent {
		return "", 0, false
	}
	if r, found := s.Replies[verb]; found {
		return r, 0, true
	}

	addr := string(s.Address)
	switch {
	case verb == "":
		return addr, 0, true

	case verb == "I":
		return addr + s.Identification, 0, true

	case strings.HasPrefix(verb, "A") && len(verb) == 2:
		s.Address = verb[1]
		return string(s.Address), 0, true

	case strings.HasPrefix(verb, "C"):
		return addr + fmt.Sprintf("%03d%02d", s.WaitSeconds, len(s.Values)), 0, true

	case strings.HasPrefix(verb, "M"):
		return addr + fmt.Sprintf("%03d%d", s.WaitSeconds, len(s.Values)), s.ServiceRequestAfter, true

	case strings.HasPrefix(verb, "D"):
		i, err := strconv.Atoi(verb[1:])
		if err != nil {
			return "", 0, false
		}
		return addr + strings.Join(s.chunk(i), ""), 0, true

	case strings.HasPrefix(verb, "R"):
		return addr + strings.Join(s.Values, ""), 0, true
	}

	return "", 0, false
}

func (s *Sensor) chunk(i int) []string {
	if s.ValuesPerReply <= 0 {
		if i == 0 {
			return s.Values
		}
		return nil
	}

	start := i * s.ValuesPerReply
	if start >= len(s.Values) {
		return nil
	}

	return s.Values[start:min(start+s.ValuesPerReply, len(s.Values))]
}
