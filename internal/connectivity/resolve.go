package connectivity

import (
	"cmp"
	"slices"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

// Resolve returns the (source, destination) network pairs usable to reach a
// machine with destinationAddresses from a machine on sourceNetworks, best
// first.
//
// Pairs not present in index are dropped. The rest are sorted by ascending
// priority with a stable sort, so pairs of equal priority keep the order of
// the cartesian product: source networks outer, destination networks inner.
func Resolve(index LinkPriorityIndex, sourceNetworks []string, destinationAddresses []domain.MachineAddress) []NetworkPair {
	sourceNetworks = distinct(sourceNetworks)
	destinationNetworks := networksOf(destinationAddresses)

	type candidate struct {
		pair     NetworkPair
		priority int
	}
	var candidates []candidate
	for _, src := range sourceNetworks {
		for _, dst := range destinationNetworks {
			priority, ok := index.Lookup(src, dst)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{
				pair:     NetworkPair{Source: src, Destination: dst},
				priority: priority,
			})
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.priority, b.priority)
	})

	pairs := make([]NetworkPair, len(candidates))
	for i, c := range candidates {
		pairs[i] = c.pair
	}
	return pairs
}

// networksOf returns the distinct networks of addrs in first-seen order
func networksOf(addrs []domain.MachineAddress) []string {
	networks := make([]string, 0, len(addrs))
	for _, a := range addrs {
		networks = append(networks, a.Network)
	}
	return distinct(networks)
}

func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
