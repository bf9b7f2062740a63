package render

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/homelab/infrabase/internal/repository"
)

type exportDocument struct {
	Machines   []exportMachine   `yaml:"machines"`
	Links      []exportLink      `yaml:"links,omitempty"`
	Keepalives []exportKeepalive `yaml:"keepalives,omitempty"`
	Providers  []exportProvider  `yaml:"providers,omitempty"`
}

type exportMachine struct {
	Hostname          string          `yaml:"hostname"`
	Owner             string          `yaml:"owner"`
	AddedTime         time.Time       `yaml:"added_time"`
	ProviderID        *int64          `yaml:"provider_id,omitempty"`
	ProviderReference *string         `yaml:"provider_reference,omitempty"`
	SSHPort           *int            `yaml:"ssh_port,omitempty"`
	SSHUser           *string         `yaml:"ssh_user,omitempty"`
	Wireguard         *exportWG       `yaml:"wireguard,omitempty"`
	Addresses         []exportAddress `yaml:"addresses,omitempty"`
}

// exportWG carries only public WireGuard material
type exportWG struct {
	IPv4      string  `yaml:"ipv4,omitempty"`
	IPv6      string  `yaml:"ipv6,omitempty"`
	Port      *int    `yaml:"port,omitempty"`
	PublicKey *string `yaml:"public_key,omitempty"`
}

type exportAddress struct {
	Network       string `yaml:"network"`
	Address       string `yaml:"address"`
	SSHPort       *int   `yaml:"ssh_port,omitempty"`
	WireguardPort *int   `yaml:"wireguard_port,omitempty"`
}

type exportLink struct {
	Network      string `yaml:"network"`
	OtherNetwork string `yaml:"other_network"`
	Priority     int    `yaml:"priority"`
}

type exportKeepalive struct {
	Source      string `yaml:"source"`
	Target      string `yaml:"target"`
	IntervalSec int    `yaml:"interval_sec"`
}

type exportProvider struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email,omitempty"`
}

// Export writes the inventory as a YAML document. Private keys are left out.
func Export(w io.Writer, snapshot *repository.Snapshot) error {
	doc := exportDocument{Machines: []exportMachine{}}

	for _, m := range snapshot.Machines {
		em := exportMachine{
			Hostname:          m.Hostname,
			Owner:             m.Owner,
			AddedTime:         m.AddedTime.UTC(),
			ProviderID:        m.ProviderID,
			ProviderReference: m.ProviderReference,
			SSHPort:           m.SSHPort,
			SSHUser:           m.SSHUser,
		}
		if m.HasWireguardAddress() || m.WireguardPublicKey != nil {
			wg := &exportWG{Port: m.WireguardPort, PublicKey: m.WireguardPublicKey}
			if m.WireguardIPv4Address.IsValid() {
				wg.IPv4 = m.WireguardIPv4Address.String()
			}
			if m.WireguardIPv6Address.IsValid() {
				wg.IPv6 = m.WireguardIPv6Address.String()
			}
			em.Wireguard = wg
		}
		for _, a := range m.Addresses {
			em.Addresses = append(em.Addresses, exportAddress{
				Network:       a.Network,
				Address:       a.Address.String(),
				SSHPort:       a.SSHPort,
				WireguardPort: a.WireguardPort,
			})
		}
		doc.Machines = append(doc.Machines, em)
	}
	for _, l := range snapshot.Links {
		doc.Links = append(doc.Links, exportLink{Network: l.Network, OtherNetwork: l.OtherNetwork, Priority: l.Priority})
	}
	for _, k := range snapshot.Keepalives {
		doc.Keepalives = append(doc.Keepalives, exportKeepalive{Source: k.SourceMachine, Target: k.TargetMachine, IntervalSec: k.IntervalSec})
	}
	for _, p := range snapshot.Providers {
		doc.Providers = append(doc.Providers, exportProvider{ID: p.ID, Name: p.Name, Email: p.Email})
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return flush(w, &buf)
}
