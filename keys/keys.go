// Package keys converts network identifiers to and from table keys.
package keys

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

const (
	// MACWidth is the key width of an Ethernet MAC address.
	MACWidth = 48
	// IPv4Width is the key width of an IPv4 address or prefix.
	IPv4Width = 32
)

// ErrUnsupported is returned for addresses of the wrong family or length.
var ErrUnsupported = errors.New("keys: unsupported address")

// MAC packs a 6-byte hardware address into the low 48 bits of a key.
func MAC(hw net.HardwareAddr) (uint64, error) {
	if len(hw) != 6 {
		return 0, fmt.Errorf("%w: %d-byte hardware address", ErrUnsupported, len(hw))
	}
	var k uint64
	for _, b := range hw {
		k = k<<8 | uint64(b)
	}
	return k, nil
}

// ParseMAC parses a textual MAC address (any form net.ParseMAC accepts).
func ParseMAC(s string) (uint64, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return 0, err
	}
	return MAC(hw)
}

// FormatMAC renders a 48-bit key as a colon-separated MAC address.
func FormatMAC(k uint64) string {
	hw := make(net.HardwareAddr, 6)
	for i := 5; i >= 0; i-- {
		hw[i] = byte(k)
		k >>= 8
	}
	return hw.String()
}

// IPv4 converts an IPv4 (or IPv4-mapped IPv6) address to a 32-bit key.
func IPv4(a netip.Addr) (uint64, error) {
	a = a.Unmap()
	if !a.Is4() {
		return 0, fmt.Errorf("%w: %s is not IPv4", ErrUnsupported, a)
	}
	b := a.As4()
	return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), nil
}

// IPv4Prefix converts a CIDR prefix to a masked key and prefix length.
// A /0 prefix is rejected since table prefixes are at least one bit long.
func IPv4Prefix(p netip.Prefix) (uint64, int, error) {
	if !p.IsValid() {
		return 0, 0, fmt.Errorf("%w: invalid prefix", ErrUnsupported)
	}
	if p.Bits() == 0 {
		return 0, 0, fmt.Errorf("%w: zero-length prefix %s", ErrUnsupported, p)
	}
	k, err := IPv4(p.Masked().Addr())
	if err != nil {
		return 0, 0, err
	}
	return k, p.Bits(), nil
}

// FormatIPv4 renders a 32-bit key as a dotted quad.
func FormatIPv4(k uint64) string {
	return netip.AddrFrom4([4]byte{byte(k >> 24), byte(k >> 16), byte(k >> 8), byte(k)}).String()
}

// PrefixFromMask turns a contiguous 32-bit base/mask pair (as returned by a
// table scan) back into a CIDR prefix.
func PrefixFromMask(base, mask uint64) (netip.Prefix, error) {
	ones, bits := net.IPMask{byte(mask >> 24), byte(mask >> 16), byte(mask >> 8), byte(mask)}.Size()
	if bits == 0 {
		return netip.Prefix{}, fmt.Errorf("%w: non-contiguous mask %#x", ErrUnsupported, mask)
	}
	addr := netip.AddrFrom4([4]byte{byte(base >> 24), byte(base >> 16), byte(base >> 8), byte(base)})
	return addr.Prefix(ones)
}
