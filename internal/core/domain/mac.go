package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidMAC is returned when a string cannot be parsed as a 48-bit address.
var ErrInvalidMAC = errors.New("invalid MAC address")

// MAC is a 48-bit IEEE 802 hardware address.
// It is a value type so it can be used directly as a map key.
type MAC [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMAC parses "XX:XX:XX:XX:XX:XX" or "XX-XX-XX-XX-XX-XX".
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// MustParseMAC parses a MAC address and panics on error.
// Only use in tests or with known-valid input.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MACFromHardwareAddr converts a net.HardwareAddr, returning the zero MAC when
// the length is wrong.
func MACFromHardwareAddr(hw net.HardwareAddr) MAC {
	var m MAC
	if len(hw) == 6 {
		copy(m[:], hw)
	}
	return m
}

// HardwareAddr returns a copy of the address as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, 6)
	copy(hw, m[:])
	return hw
}

// IsBroadcast reports whether m is the broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}

// IsGroup reports whether the group (multicast) bit is set.
func (m MAC) IsGroup() bool {
	return m[0]&0x01 == 0x01
}

// IsZero reports whether every octet is zero.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MarshalJSON encodes the address in its colon-separated form.
func (m MAC) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts the colon-separated form.
func (m *MAC) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMAC(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
