package connectivity

import (
	"fmt"
	"math"
	"net/netip"
	"slices"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/natsort"
)

// MachinePair is a directed (source machine, target machine) pair
type MachinePair struct {
	Source string
	Target string
}

// Keepalives maps (source, target) machine pairs to a PersistentKeepalive interval
type Keepalives map[MachinePair]int

// NewKeepalives builds a Keepalives lookup from keepalive rows
func NewKeepalives(rows []domain.WireguardKeepalive) Keepalives {
	k := make(Keepalives, len(rows))
	for _, r := range rows {
		k[MachinePair{Source: r.SourceMachine, Target: r.TargetMachine}] = r.IntervalSec
	}
	return k
}

// Lookup returns the keepalive interval from source to target
func (k Keepalives) Lookup(source, target string) (int, bool) {
	v, ok := k[MachinePair{Source: source, Target: target}]
	return v, ok
}

// FindMachine returns the machine named hostname
func FindMachine(machines []domain.Machine, hostname string) (domain.Machine, error) {
	for _, m := range machines {
		if m.Hostname == hostname {
			return m, nil
		}
	}
	return domain.Machine{}, fmt.Errorf("%w: %q", domain.ErrNoSuchMachine, hostname)
}

// BuildPeers returns the WireGuard peers of forHostname, naturally sorted by
// hostname.
//
// Paths are always resolved from forHostname's own networks towards each
// candidate's addresses. Candidates without a WireGuard address or public key
// are left out. A peer whose best path lands on an address with no WireGuard
// port is listed without an endpoint.
func BuildPeers(machines []domain.Machine, index LinkPriorityIndex, keepalives Keepalives, forHostname string) ([]domain.WireguardPeer, error) {
	source, err := FindMachine(machines, forHostname)
	if err != nil {
		return nil, err
	}

	var peers []domain.WireguardPeer
	for _, candidate := range machines {
		if candidate.Hostname == forHostname {
			continue
		}
		if !candidate.HasWireguardAddress() || candidate.WireguardPublicKey == nil || *candidate.WireguardPublicKey == "" {
			continue
		}

		endpoint, err := wireguardEndpoint(index, source.Networks, candidate)
		if err != nil {
			return nil, err
		}

		peer := domain.WireguardPeer{
			Hostname:  candidate.Hostname,
			PublicKey: *candidate.WireguardPublicKey,
			Addresses: candidate.WireguardAddresses(),
			Endpoint:  endpoint,
		}
		if interval, ok := keepalives.Lookup(forHostname, candidate.Hostname); ok {
			peer.Keepalive = &interval
		}
		peers = append(peers, peer)
	}

	SortPeers(peers)
	return peers, nil
}

// SortPeers sorts peers by hostname in natural order
func SortPeers(peers []domain.WireguardPeer) {
	slices.SortStableFunc(peers, func(a, b domain.WireguardPeer) int {
		return natsort.Compare(a.Hostname, b.Hostname)
	})
}

func wireguardEndpoint(index LinkPriorityIndex, sourceNetworks []string, candidate domain.Machine) (*domain.Endpoint, error) {
	pairs := Resolve(index, sourceNetworks, candidate.Addresses)
	if len(pairs) == 0 {
		return nil, nil
	}

	addr, ok := candidate.AddressOn(pairs[0].Destination)
	if !ok || addr.WireguardPort == nil {
		return nil, nil
	}

	port, err := toPort(*addr.WireguardPort)
	if err != nil {
		return nil, fmt.Errorf("WireGuard port of %s on %s: %w", candidate.Hostname, addr.Network, err)
	}
	return &domain.Endpoint{Address: addr.Address, Port: port}, nil
}

// SelectSSHTargets returns, for every machine other than forHostname, the
// address and port forHostname should SSH to.
//
// A non-WireGuard address reached over the best network path is preferred,
// since WireGuard itself may be down. When no path resolves, the machine's
// WireGuard address and machine-level SSH port are used. Machines with no
// usable address or port are absent from the result.
func SelectSSHTargets(machines []domain.Machine, index LinkPriorityIndex, forHostname string) (map[string]domain.SSHTarget, error) {
	source, err := FindMachine(machines, forHostname)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]domain.SSHTarget)
	for _, candidate := range machines {
		if candidate.Hostname == forHostname {
			continue
		}

		var (
			address netip.Addr
			rawPort *int
		)
		if pairs := Resolve(index, source.Networks, candidate.Addresses); len(pairs) > 0 {
			addr, _ := candidate.AddressOn(pairs[0].Destination)
			address = addr.Address
			rawPort = addr.SSHPort
			if rawPort == nil {
				rawPort = candidate.SSHPort
			}
		} else if wg := candidate.WireguardAddresses(); len(wg) > 0 {
			address = wg[0]
			rawPort = candidate.SSHPort
		}

		if !address.IsValid() || rawPort == nil {
			continue
		}
		port, err := toPort(*rawPort)
		if err != nil {
			return nil, fmt.Errorf("SSH port of %s: %w", candidate.Hostname, err)
		}

		targets[candidate.Hostname] = domain.SSHTarget{
			Hostname: candidate.Hostname,
			Owner:    candidate.Owner,
			User:     candidate.SSHUser,
			Address:  address,
			Port:     port,
		}
	}
	return targets, nil
}

// SortedSSHTargets returns the targets naturally sorted by hostname
func SortedSSHTargets(targets map[string]domain.SSHTarget) []domain.SSHTarget {
	out := make([]domain.SSHTarget, 0, len(targets))
	for _, t := range targets {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.SSHTarget) int {
		return natsort.Compare(a.Hostname, b.Hostname)
	})
	return out
}

func toPort(p int) (uint16, error) {
	if p < 0 || p > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d", domain.ErrPortOutOfRange, p)
	}
	return uint16(p), nil
}
