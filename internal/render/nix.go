package render

import (
	"bytes"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"github.com/jbweber/homelab/infrabase/internal/connectivity"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
)

var nixEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `${`, `\${`)

// nixString quotes s as a Nix string literal
func nixString(s string) string {
	return `"` + nixEscaper.Replace(s) + `"`
}

func nixOptionalString(s *string) string {
	if s == nil {
		return "null"
	}
	return nixString(*s)
}

func nixOptionalInt(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}

func nixOptionalInt64(v *int64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatInt(*v, 10)
}

func nixAddr(a netip.Addr) string {
	if !a.IsValid() {
		return "null"
	}
	return nixString(a.String())
}

// NixPeers writes peers as a Nix list, one attribute set per peer
func NixPeers(w io.Writer, peers []domain.WireguardPeer) error {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for _, p := range peers {
		prefixes := make([]string, 0, len(p.Addresses))
		for _, a := range p.Addresses {
			prefixes = append(prefixes, nixString(HostPrefix(a)))
		}

		fmt.Fprintf(&buf, "  { name = %s; allowedIPs = [ %s ]; publicKey = %s; ",
			nixString(p.Hostname), strings.Join(prefixes, " "), nixString(p.PublicKey))
		if p.Endpoint != nil {
			fmt.Fprintf(&buf, "endpoint = %s; ", nixString(p.Endpoint.String()))
		}
		if p.Keepalive != nil {
			fmt.Fprintf(&buf, "persistentKeepalive = %d; ", *p.Keepalive)
		}
		buf.WriteString("}\n")
	}
	buf.WriteString("]\n")
	return flush(w, &buf)
}

// NixData writes every machine as a Nix attribute set keyed by hostname
func NixData(w io.Writer, snapshot *repository.Snapshot) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for _, m := range snapshot.Machines {
		fmt.Fprintf(&buf, "  %s = { owner = %s; wireguard_ipv4_address = %s; wireguard_ipv6_address = %s; wireguard_port = %s; ssh_port = %s; provider_id = %s; provider_reference = %s; addresses = { ",
			nixString(m.Hostname),
			nixString(m.Owner),
			nixAddr(m.WireguardIPv4Address),
			nixAddr(m.WireguardIPv6Address),
			nixOptionalInt(m.WireguardPort),
			nixOptionalInt(m.SSHPort),
			nixOptionalInt64(m.ProviderID),
			nixOptionalString(m.ProviderReference),
		)
		for _, a := range m.Addresses {
			fmt.Fprintf(&buf, "%s = { ip = %s; ssh_port = %s; wireguard_port = %s; }; ",
				nixString(a.Network),
				nixAddr(a.Address),
				nixOptionalInt(a.SSHPort),
				nixOptionalInt(a.WireguardPort),
			)
		}
		buf.WriteString("}; };\n")
	}
	buf.WriteString("}\n")
	return flush(w, &buf)
}

// PeerFile is a rendered Nix peers file and where it belongs
type PeerFile struct {
	Hostname string
	Path     string
	Content  []byte
}

// PeerFiles renders the Nix peers file of every machine with a WireGuard
// address. Paths come from expanding template per machine.
func PeerFiles(snapshot *repository.Snapshot, template string) ([]PeerFile, error) {
	keepalives := snapshot.KeepaliveLookup()

	var files []PeerFile
	for _, m := range snapshot.Machines {
		if !m.HasWireguardAddress() {
			continue
		}
		path, err := PeersPath(template, m)
		if err != nil {
			return nil, err
		}
		peers, err := connectivity.BuildPeers(snapshot.Machines, snapshot.Index, keepalives, m.Hostname)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := NixPeers(&buf, peers); err != nil {
			return nil, err
		}
		files = append(files, PeerFile{Hostname: m.Hostname, Path: path, Content: buf.Bytes()})
	}
	return files, nil
}
