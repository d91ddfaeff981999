package sdi12

import (
	"fmt"
	"strconv"
	"strings"
)

// Identification reply layout: a + ll + cccccccc + mmmmmm + vvv + xxx...
const (
	identSDIVersionOffset   = 1
	identManufacturerOffset = 3
	identModelOffset        = 11
	identVersionOffset      = 17
	identExtraOffset        = 20

	// MinIdentityLength is the shortest reply carrying manufacturer and model.
	MinIdentityLength = identVersionOffset
)

// SensorIdentity is the parsed reply of "aI!".
type SensorIdentity struct {
	Address Address
	// SDIVersion is the protocol version the sensor implements, e.g. "13".
	SDIVersion   string
	Manufacturer string
	Model        string
	// Version and ExtraInfo are empty for replies of 20 characters or less.
	Version   string
	ExtraInfo string
}

// ParseIdentity slices an identification reply by its fixed field offsets.
// Each field is trimmed of padding.
func ParseIdentity(line string) (*SensorIdentity, error) {
	if len(line) < MinIdentityLength {
		return nil, fmt.Errorf("%w: identification %q shorter than %d", ErrMalformedReply, line, MinIdentityLength)
	}

	id := &SensorIdentity{
		Address:      Address(line[0]),
		SDIVersion:   strings.TrimSpace(line[identSDIVersionOffset:identManufacturerOffset]),
		Manufacturer: strings.TrimSpace(line[identManufacturerOffset:identModelOffset]),
		Model:        strings.TrimSpace(line[identModelOffset:identVersionOffset]),
	}
	if len(line) > identExtraOffset {
		id.Version = strings.TrimSpace(line[identVersionOffset:identExtraOffset])
		id.ExtraInfo = strings.TrimSpace(line[identExtraOffset:])
	}

	return id, nil
}

// MeasurementReady is the parsed reply of a measurement request: "atttn",
// where ttt is the wait time in seconds and n has DigitCount digits.
type MeasurementReady struct {
	WaitSeconds uint16
	ValueCount  int
}

// ParseMeasurementReady parses the reply of a measurement request sent to addr.
// The reply must be exactly 4+digits characters long.
func ParseMeasurementReady(line string, addr Address, digits int) (MeasurementReady, error) {
	if len(line) != 4+digits {
		return MeasurementReady{}, fmt.Errorf("%w: measurement reply %q, want %d characters", ErrMalformedReply, line, 4+digits)
	}
	if Address(line[0]) != addr {
		return MeasurementReady{}, fmt.Errorf("%w: measurement reply %q from address %q", ErrMalformedReply, line, line[0])
	}

	wait, err := parseDigits(line[1:4])
	if err != nil {
		return MeasurementReady{}, fmt.Errorf("%w: wait time in %q", ErrMalformedReply, line)
	}
	count, err := parseDigits(line[4:])
	if err != nil {
		return MeasurementReady{}, fmt.Errorf("%w: value count in %q", ErrMalformedReply, line)
	}

	return MeasurementReady{WaitSeconds: uint16(wait), ValueCount: count}, nil //nolint:gosec // three digits
}

func parseDigits(s string) (int, error) {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}

	return strconv.Atoi(s)
}

// ParseValues splits a data reply into its values.
//
// The first character is the address and is skipped. Values carry no
// separator besides their sign: '+' starts a value whose text omits the sign,
// '-' starts a value whose text begins with "-", and any other character
// extends the current value. Values are kept as text since sensors choose
// their own decimal formatting.
//
// A payload holding only the address yields an empty slice. A payload whose
// first data character is not a sign returns ErrValueFormat.
func ParseValues(payload string) ([]string, error) {
	values := []string{}
	if len(payload) <= 1 {
		return values, nil
	}

	if c := payload[1]; c != '+' && c != '-' {
		return values, fmt.Errorf("%w: %q", ErrValueFormat, payload)
	}

	var cur strings.Builder
	for i := 1; i < len(payload); i++ {
		switch c := payload[i]; c {
		case '+', '-':
			if i > 1 {
				values = append(values, cur.String())
			}
			cur.Reset()
			if c == '-' {
				cur.WriteByte('-')
			}
		default:
			cur.WriteByte(c)
		}
	}
	values = append(values, cur.String())

	return values, nil
}
