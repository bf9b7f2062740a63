// Package addrpool allocates WireGuard addresses from a configured range.
//
// Allocation is a pure function of the existing-address set and the range
// bounds. Callers must read the existing set and insert the allocated
// address inside the same database transaction, otherwise two concurrent
// provisioning commands can be handed the same address.
package addrpool

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

// ErrInvalidRange is returned when the range bounds are unusable
var ErrInvalidRange = errors.New("invalid address range")

// Set is a set of addresses
type Set map[netip.Addr]struct{}

// NewSet builds a Set from addrs, ignoring invalid ones
func NewSet(addrs ...netip.Addr) Set {
	s := make(Set, len(addrs))
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts addr into the set
func (s Set) Add(addr netip.Addr) {
	if !addr.IsValid() {
		return
	}
	s[addr.Unmap()] = struct{}{}
}

// Contains reports whether addr is in the set
func (s Set) Contains(addr netip.Addr) bool {
	_, ok := s[addr.Unmap()]
	return ok
}

// Increment returns the numerically next address. The second result is
// false when addr is the all-ones address of its family, which has no
// successor.
func Increment(addr netip.Addr) (netip.Addr, bool) {
	switch {
	case addr.Is4():
		return incrementIPv4(addr)
	case addr.Is6():
		return incrementIPv6(addr)
	}
	return netip.Addr{}, false
}

func incrementIPv4(addr netip.Addr) (netip.Addr, bool) {
	octets := addr.As4()
	for i := len(octets) - 1; i >= 0; i-- {
		if octets[i] < 0xff {
			octets[i]++
			return netip.AddrFrom4(octets), true
		}
		octets[i] = 0
	}
	return netip.Addr{}, false
}

func incrementIPv6(addr netip.Addr) (netip.Addr, bool) {
	b := addr.As16()
	var segments [8]uint16
	for i := range segments {
		segments[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}

	carried := true
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] < 0xffff {
			segments[i]++
			carried = false
			break
		}
		segments[i] = 0
	}
	if carried {
		return netip.Addr{}, false
	}

	for i, seg := range segments {
		b[2*i] = byte(seg >> 8)
		b[2*i+1] = byte(seg)
	}
	return netip.AddrFrom16(b).WithZone(addr.Zone()), true
}

// FindUnused returns the first address in [start, end] that is not in
// existing. It returns domain.ErrNoAddressAvailable when every address in
// the range is taken.
func FindUnused(existing Set, start, end netip.Addr) (netip.Addr, error) {
	start, end = start.Unmap(), end.Unmap()
	if !start.IsValid() || !end.IsValid() {
		return netip.Addr{}, fmt.Errorf("%w: range bounds must be set", ErrInvalidRange)
	}
	if start.Is4() != end.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %s and %s are different address families", ErrInvalidRange, start, end)
	}

	for proposed, ok := start, true; ok; proposed, ok = Increment(proposed) {
		if proposed.Compare(end) > 0 {
			break
		}
		if !existing.Contains(proposed) {
			return proposed, nil
		}
		if proposed == end {
			break
		}
	}

	return netip.Addr{}, fmt.Errorf("%w between %s and %s", domain.ErrNoAddressAvailable, start, end)
}
