// Package render turns an inventory snapshot into operational artifacts:
// OpenSSH client config, wg-quick config, Nix data and Nix peer lists.
//
// Every renderer builds the complete artifact in memory before writing it,
// so a failure never leaves partial output behind.
package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/netip"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

func flush(w io.Writer, buf *bytes.Buffer) error {
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// HostPrefix formats addr as a single-host prefix (/32 or /128)
func HostPrefix(addr netip.Addr) string {
	return netip.PrefixFrom(addr, addr.BitLen()).String()
}

func checkPort(p int) (int, error) {
	if p < 0 || p > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d", domain.ErrPortOutOfRange, p)
	}
	return p, nil
}
