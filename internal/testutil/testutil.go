package testutil

import (
	"context"
	"net/netip"
	"testing"

	"github.com/jbweber/homelab/infrabase/internal/datastore"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
)

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// StrPtr returns a pointer to v
func StrPtr(v string) *string { return &v }

// SeedMachine saves m together with its owner, networks and addresses
func SeedMachine(t *testing.T, ds *datastore.Datastore, m domain.Machine) domain.Machine {
	t.Helper()
	ctx := context.Background()

	if m.Owner == "" {
		m.Owner = "test"
	}
	if err := repository.NewOwnerRepository(ds.DB).Ensure(ctx, m.Owner); err != nil {
		t.Fatalf("Failed to seed owner: %v", err)
	}
	saved, err := repository.NewMachineRepository(ds.DB).Save(ctx, m)
	if err != nil {
		t.Fatalf("Failed to seed machine %s: %v", m.Hostname, err)
	}

	for _, a := range m.Addresses {
		a.Hostname = m.Hostname
		SeedNetwork(t, ds, a.Network)
		if err := repository.NewAddressRepository(ds.DB).Add(ctx, a); err != nil {
			t.Fatalf("Failed to seed address %s: %v", a.Address, err)
		}
	}
	if len(m.Addresses) > 0 {
		saved, err = repository.NewMachineRepository(ds.DB).FindByID(ctx, m.Hostname)
		if err != nil {
			t.Fatalf("Failed to reload machine %s: %v", m.Hostname, err)
		}
	}
	return saved
}

// SeedNetwork creates the named network
func SeedNetwork(t *testing.T, ds *datastore.Datastore, name string) {
	t.Helper()
	if _, err := repository.NewNetworkRepository(ds.DB).Save(context.Background(), domain.Network{Name: name}); err != nil {
		t.Fatalf("Failed to seed network %s: %v", name, err)
	}
}

// SeedLink creates both networks and the link between them
func SeedLink(t *testing.T, ds *datastore.Datastore, network, other string, priority int) {
	t.Helper()
	SeedNetwork(t, ds, network)
	SeedNetwork(t, ds, other)
	link := domain.NetworkLink{Network: network, OtherNetwork: other, Priority: priority}
	if err := repository.NewNetworkRepository(ds.DB).SaveLink(context.Background(), link); err != nil {
		t.Fatalf("Failed to seed link %s -> %s: %v", network, other, err)
	}
}

// Address builds a MachineAddress on network
func Address(network, addr string, sshPort, wireguardPort *int) domain.MachineAddress {
	return domain.MachineAddress{
		Network:       network,
		Address:       netip.MustParseAddr(addr),
		SSHPort:       sshPort,
		WireguardPort: wireguardPort,
	}
}
