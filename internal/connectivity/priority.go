// Package connectivity decides how one machine reaches another: which
// network-to-network path to use, which concrete address and port that
// path lands on, and the resulting WireGuard peer list and SSH targets.
//
// Everything here is a pure computation over a snapshot of the inventory
// loaded at the start of a command. Nothing is cached between commands.
package connectivity

import "github.com/jbweber/homelab/infrabase/internal/domain"

// NetworkPair is a directed (source network, destination network) path
type NetworkPair struct {
	Source      string
	Destination string
}

// LinkPriorityIndex answers whether a network may reach another network and
// how preferred that path is. Pairs that are not in the index are not
// permitted paths at all.
type LinkPriorityIndex struct {
	priorities map[NetworkPair]int
}

// NewLinkPriorityIndex builds an index from link rows. A later row for the
// same pair replaces an earlier one.
func NewLinkPriorityIndex(links []domain.NetworkLink) LinkPriorityIndex {
	priorities := make(map[NetworkPair]int, len(links))
	for _, l := range links {
		priorities[NetworkPair{Source: l.Network, Destination: l.OtherNetwork}] = l.Priority
	}
	return LinkPriorityIndex{priorities: priorities}
}

// Lookup returns the priority of the network -> other path
func (x LinkPriorityIndex) Lookup(network, other string) (int, bool) {
	p, ok := x.priorities[NetworkPair{Source: network, Destination: other}]
	return p, ok
}

// Len returns the number of permitted paths
func (x LinkPriorityIndex) Len() int {
	return len(x.priorities)
}
