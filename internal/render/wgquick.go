package render

import (
	"bytes"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/jbweber/homelab/infrabase/internal/connectivity"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
)

// RedactedPrivateKey stands in for the private key in redacted wg-quick configs
const RedactedPrivateKey = "<redacted>"

type wgQuickOptions struct {
	redactPrivateKey bool
}

// WgQuickOption changes how WgQuick renders a config
type WgQuickOption func(*wgQuickOptions)

// WithRedactedPrivateKey writes RedactedPrivateKey in place of the machine's
// private key
func WithRedactedPrivateKey() WgQuickOption {
	return func(o *wgQuickOptions) {
		o.redactPrivateKey = true
	}
}

// WgQuick writes the wg-quick config of forHostname: its [Interface] and
// one [Peer] per other WireGuard machine
func WgQuick(w io.Writer, forHostname string, snapshot *repository.Snapshot, opts ...WgQuickOption) error {
	var options wgQuickOptions
	for _, opt := range opts {
		opt(&options)
	}

	self, err := snapshot.Machine(forHostname)
	if err != nil {
		return err
	}
	if !self.HasWireguardAddress() {
		return fmt.Errorf("%w: %q has no WireGuard address", domain.ErrMachineHasNoWireguard, forHostname)
	}
	if self.WireguardPort == nil {
		return fmt.Errorf("%w: %q has no WireGuard port", domain.ErrMachineHasNoWireguard, forHostname)
	}
	if self.WireguardPrivateKey == nil || *self.WireguardPrivateKey == "" {
		return fmt.Errorf("%w: %q has no private key", domain.ErrMachineHasNoWireguard, forHostname)
	}
	listenPort, err := checkPort(*self.WireguardPort)
	if err != nil {
		return fmt.Errorf("WireGuard port of %s: %w", forHostname, err)
	}

	peers, err := connectivity.BuildPeers(snapshot.Machines, snapshot.Index, snapshot.KeepaliveLookup(), forHostname)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# infrabase-generated wg-quick config for %s\n\n", forHostname)
	buf.WriteString("[Interface]\n")
	fmt.Fprintf(&buf, "Address = %s\n", allowedIPs(self.WireguardAddresses()))
	privateKey := *self.WireguardPrivateKey
	if options.redactPrivateKey {
		privateKey = RedactedPrivateKey
	}
	fmt.Fprintf(&buf, "PrivateKey = %s\n", privateKey)
	fmt.Fprintf(&buf, "ListenPort = %d\n", listenPort)

	for _, p := range peers {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "# %s\n", p.Hostname)
		buf.WriteString("[Peer]\n")
		fmt.Fprintf(&buf, "PublicKey = %s\n", p.PublicKey)
		fmt.Fprintf(&buf, "AllowedIPs = %s\n", allowedIPs(p.Addresses))
		if p.Endpoint != nil {
			fmt.Fprintf(&buf, "Endpoint = %s\n", p.Endpoint)
		}
		if p.Keepalive != nil {
			fmt.Fprintf(&buf, "PersistentKeepalive = %d\n", *p.Keepalive)
		}
	}
	return flush(w, &buf)
}

func allowedIPs(addrs []netip.Addr) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, HostPrefix(a))
	}
	return strings.Join(parts, ", ")
}
