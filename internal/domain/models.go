package domain

import (
	"net/netip"
	"time"
)

// Machine represents a host tracked in the inventory
type Machine struct {
	Hostname             string     // Unique machine hostname
	Owner                string     // Foreign key to Owner
	ProviderID           *int64     // Hosting provider (optional)
	ProviderReference    *string    // Contract ID, server number etc. at the provider (optional)
	AddedTime            time.Time  // When the machine was added
	SSHPort              *int       // Machine-level SSH port (optional)
	SSHUser              *string    // SSH user (optional)
	WireguardIPv4Address netip.Addr // WireGuard IPv4 address (invalid when unset)
	WireguardIPv6Address netip.Addr // WireGuard IPv6 address (invalid when unset)
	WireguardPort        *int       // WireGuard listen port (optional)
	WireguardPrivateKey  *string    // Base64 WireGuard private key (optional)
	WireguardPublicKey   *string    // Base64 WireGuard public key (optional)
	Networks             []string   // Networks the machine has addresses on
	Addresses            []MachineAddress
}

// HasWireguardAddress reports whether the machine has at least one WireGuard address
func (m Machine) HasWireguardAddress() bool {
	return m.WireguardIPv4Address.IsValid() || m.WireguardIPv6Address.IsValid()
}

// WireguardAddresses returns the machine's WireGuard addresses, IPv4 first
func (m Machine) WireguardAddresses() []netip.Addr {
	var addrs []netip.Addr
	if m.WireguardIPv4Address.IsValid() {
		addrs = append(addrs, m.WireguardIPv4Address)
	}
	if m.WireguardIPv6Address.IsValid() {
		addrs = append(addrs, m.WireguardIPv6Address)
	}
	return addrs
}

// AddressOn returns the first address the machine has on network
func (m Machine) AddressOn(network string) (MachineAddress, bool) {
	for _, a := range m.Addresses {
		if a.Network == network {
			return a, true
		}
	}
	return MachineAddress{}, false
}

// MachineAddress represents an address a machine is reachable at on a network
type MachineAddress struct {
	Hostname      string     // Foreign key to Machine
	Network       string     // Foreign key to Network
	Address       netip.Addr // The address
	SSHPort       *int       // SSH port on this address (optional)
	WireguardPort *int       // WireGuard port on this address (optional)
}

// Network represents a named network segment (e.g., "public", "vpn")
type Network struct {
	Name string
}

// NetworkLink is a directed, weighted edge between two networks.
// Lower priority values are preferred.
type NetworkLink struct {
	Network      string
	OtherNetwork string
	Priority     int
}

// WireguardKeepalive configures PersistentKeepalive from one machine to another
type WireguardKeepalive struct {
	SourceMachine string
	TargetMachine string
	IntervalSec   int
}

// Provider represents a hosting provider
type Provider struct {
	ID    int64
	Name  string
	Email string
}

// Endpoint is an externally reachable address and port
type Endpoint struct {
	Address netip.Addr
	Port    uint16
}

// AddrPort returns the endpoint as a netip.AddrPort
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.Address, e.Port)
}

// String formats the endpoint as host:port, bracketing IPv6 addresses
func (e Endpoint) String() string {
	return e.AddrPort().String()
}

// WireguardPeer is one [Peer] entry of a machine's WireGuard configuration.
// It is derived from the inventory and never persisted.
type WireguardPeer struct {
	Hostname  string
	PublicKey string
	Addresses []netip.Addr
	Endpoint  *Endpoint
	Keepalive *int
}

// SSHTarget is the address and port used to SSH into a machine
type SSHTarget struct {
	Hostname string
	Owner    string
	User     *string
	Address  netip.Addr
	Port     uint16
}
