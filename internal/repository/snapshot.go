package repository

import (
	"context"

	"github.com/jbweber/homelab/infrabase/internal/connectivity"
	"github.com/jbweber/homelab/infrabase/internal/domain"
)

// Snapshot is everything a render needs, read in one go
type Snapshot struct {
	Machines   []domain.Machine
	Links      []domain.NetworkLink
	Index      connectivity.LinkPriorityIndex
	Keepalives []domain.WireguardKeepalive
	Providers  []domain.Provider
}

// KeepaliveLookup returns the keepalives as a (source, target) lookup
func (s *Snapshot) KeepaliveLookup() connectivity.Keepalives {
	return connectivity.NewKeepalives(s.Keepalives)
}

// Machine returns the machine named hostname or domain.ErrNoSuchMachine
func (s *Snapshot) Machine(hostname string) (domain.Machine, error) {
	return connectivity.FindMachine(s.Machines, hostname)
}

// LoadSnapshot reads machines, links, keepalives and providers through db
func LoadSnapshot(ctx context.Context, db DBTX) (*Snapshot, error) {
	machines, err := NewMachineRepository(db).FindAll(ctx)
	if err != nil {
		return nil, err
	}
	networks := NewNetworkRepository(db)
	links, err := networks.FindAllLinks(ctx)
	if err != nil {
		return nil, err
	}
	keepalives, err := NewKeepaliveRepository(db).FindAll(ctx)
	if err != nil {
		return nil, err
	}
	providers, err := NewProviderRepository(db).FindAll(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Machines:   machines,
		Links:      links,
		Index:      connectivity.NewLinkPriorityIndex(links),
		Keepalives: keepalives,
		Providers:  providers,
	}, nil
}
