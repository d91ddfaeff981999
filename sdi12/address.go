package sdi12

import (
	"fmt"
)

// Address is a single-character SDI-12 sensor address: '0'-'9', 'A'-'Z' or 'a'-'z'.
type Address byte

// DefaultAddress is the factory address of most sensors.
const DefaultAddress Address = '0'

// ParseAddress validates s as a sensor address.
func ParseAddress(s string) (Address, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	a := Address(s[0])
	if !a.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return a, nil
}

// IsValid reports whether a is in the SDI-12 address space.
func (a Address) IsValid() bool {
	switch {
	case a >= '0' && a <= '9':
		return true
	case a >= 'A' && a <= 'Z':
		return true
	case a >= 'a' && a <= 'z':
		return true
	}

	return false
}

func (a Address) String() string {
	return string(rune(a))
}

// AllAddresses returns the 62 valid addresses in ascending order.
func AllAddresses() []Address {
	addrs := make([]Address, 0, 62)
	for _, r := range [][2]byte{{'0', '9'}, {'A', 'Z'}, {'a', 'z'}} {
		for c := r[0]; c <= r[1]; c++ {
			addrs = append(addrs, Address(c))
		}
	}

	return addrs
}

// Command is an ASCII command frame terminated by '!'.
type Command string

// QueryAddressCommand asks the only sensor on the bus for its address.
const QueryAddressCommand Command = "?!"

// NewCommand builds "<address><verb>!".
func NewCommand(addr Address, verb string) Command {
	return Command(addr.String() + verb + "!")
}

func (c Command) String() string {
	return string(c)
}
