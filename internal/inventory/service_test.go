package inventory

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/infrabase/internal/config"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/logging"
	"github.com/jbweber/homelab/infrabase/internal/repository"
	"github.com/jbweber/homelab/infrabase/internal/testutil"
	"github.com/jbweber/homelab/infrabase/internal/wgkeys"
)

func testSettings() *config.Settings {
	s := config.NewSettings()
	s.WireguardIPv4Start = netip.MustParseAddr("10.0.0.1")
	s.WireguardIPv4End = netip.MustParseAddr("10.0.0.2")
	s.WireguardIPv6Start = netip.MustParseAddr("fd00::1")
	s.WireguardIPv6End = netip.MustParseAddr("fd00::ff")
	s.DefaultOwner = "alice"
	s.DefaultSSHPort = testutil.IntPtr(22)
	s.DefaultSSHUser = "root"
	s.DefaultWireguardPort = testutil.IntPtr(51820)
	return s
}

func newTestService(t *testing.T, settings *config.Settings) *Service {
	t.Helper()
	ds := testutil.SetupTestDatastore(t)
	n := 0
	return NewService(ds, settings, logging.Discard()).WithKeyGenerator(func() (wgkeys.Keypair, error) {
		n++
		return wgkeys.Keypair{PrivateKey: fmt.Sprintf("priv%d", n), PublicKey: fmt.Sprintf("pub%d", n)}, nil
	})
}

func TestService_AddMachineDefaultsAndAllocation(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	m, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", m.Owner)
	assert.Equal(t, 22, *m.SSHPort)
	assert.Equal(t, "root", *m.SSHUser)
	assert.Equal(t, 51820, *m.WireguardPort)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), m.WireguardIPv4Address)
	assert.Equal(t, netip.MustParseAddr("fd00::1"), m.WireguardIPv6Address)
	assert.Equal(t, "priv1", *m.WireguardPrivateKey)
	assert.Equal(t, "pub1", *m.WireguardPublicKey)

	m2, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web2", Owner: "bob", SSHPort: testutil.IntPtr(2222)})
	require.NoError(t, err)
	assert.Equal(t, "bob", m2.Owner)
	assert.Equal(t, 2222, *m2.SSHPort)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), m2.WireguardIPv4Address)
	assert.Equal(t, netip.MustParseAddr("fd00::2"), m2.WireguardIPv6Address)

	// IPv4 range 10.0.0.1-10.0.0.2 is now exhausted
	_, err = svc.AddMachine(ctx, MachineRequest{Hostname: "web3"})
	assert.ErrorIs(t, err, domain.ErrNoAddressAvailable)

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Machines, 2)
}

func TestService_AddMachineExplicitAddresses(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	m, err := svc.AddMachine(ctx, MachineRequest{
		Hostname:             "web1",
		WireguardIPv4Address: netip.MustParseAddr("10.0.0.2"),
		WireguardIPv6Address: netip.MustParseAddr("fd00::9"),
	})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), m.WireguardIPv4Address)

	// First unused skips the explicitly assigned address
	m2, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web2"})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), m2.WireguardIPv4Address)

	_, err = svc.AddMachine(ctx, MachineRequest{Hostname: "web3", WireguardIPv4Address: netip.MustParseAddr("fd00::5")})
	assert.ErrorIs(t, err, repository.ErrInvalidEntity)
}

func TestService_AddMachineImportedKey(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	kp, err := wgkeys.Generate()
	require.NoError(t, err)

	m, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1", WireguardPrivateKey: kp.PrivateKey})
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey, *m.WireguardPrivateKey)
	assert.Equal(t, kp.PublicKey, *m.WireguardPublicKey)

	_, err = svc.AddMachine(ctx, MachineRequest{Hostname: "web2", WireguardPrivateKey: "garbage"})
	assert.ErrorIs(t, err, repository.ErrInvalidEntity)
}

func TestService_AddMachineRejectsInvalidHostnames(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	tests := []struct {
		name     string
		hostname string
	}{
		{"empty", ""},
		{"path traversal", "../../etc/x"},
		{"slash", "a/b"},
		{"newline injection", "web1\n  ProxyCommand evil"},
		{"space", "web 1"},
		{"leading hyphen", "-web1"},
		{"trailing hyphen", "web1-"},
		{"empty label", "web1..example"},
		{"trailing dot", "web1."},
		{"label too long", strings.Repeat("a", 64)},
		{"name too long", strings.Repeat("a.", 127) + "ab"},
		{"template token", "{hostname}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddMachine(ctx, MachineRequest{Hostname: tt.hostname})
			assert.ErrorIs(t, err, repository.ErrInvalidEntity)
		})
	}

	machines, err := repository.NewMachineRepository(svc.ds.DB).FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, machines)
}

func TestService_AddMachineAcceptsValidHostnames(t *testing.T) {
	settings := testSettings()
	settings.WireguardIPv4End = netip.MustParseAddr("10.0.0.10")
	svc := newTestService(t, settings)
	ctx := context.Background()

	for _, hostname := range []string{"web1", "Web-2", "db.example.com", "1host", strings.Repeat("a", 63)} {
		_, err := svc.AddMachine(ctx, MachineRequest{Hostname: hostname})
		assert.NoError(t, err, hostname)
	}
}

func TestService_AddMachineDuplicate(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	_, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	require.NoError(t, err)
	_, err = svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestService_AddMachineMissingSettings(t *testing.T) {
	settings := testSettings()
	settings.DefaultOwner = ""
	svc := newTestService(t, settings)

	_, err := svc.AddMachine(context.Background(), MachineRequest{Hostname: "web1"})
	assert.ErrorContains(t, err, "DEFAULT_OWNER")

	settings = testSettings()
	settings.WireguardIPv6End = netip.Addr{}
	svc = newTestService(t, settings)
	_, err = svc.AddMachine(context.Background(), MachineRequest{Hostname: "web1"})
	assert.ErrorContains(t, err, "WIREGUARD_IPV6_END is not set")
}

func TestService_RemoveMachine(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	_, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMachine(ctx, "web1"))

	err = svc.RemoveMachine(ctx, "web1")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}

func TestService_Addresses(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	_, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	require.NoError(t, err)

	addr := netip.MustParseAddr("203.0.113.10")
	require.NoError(t, svc.AddAddress(ctx, AddressRequest{Hostname: "web1", Network: "public", Address: addr}))

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	m, err := snapshot.Machine("web1")
	require.NoError(t, err)
	require.Len(t, m.Addresses, 1)
	assert.Equal(t, 22, *m.Addresses[0].SSHPort)
	assert.Equal(t, 51820, *m.Addresses[0].WireguardPort)
	assert.Equal(t, []string{"public"}, m.Networks)

	err = svc.AddAddress(ctx, AddressRequest{Hostname: "ghost", Network: "public", Address: addr})
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)

	require.NoError(t, svc.RemoveAddress(ctx, "web1", "public", addr))
	err = svc.RemoveAddress(ctx, "web1", "public", addr)
	assert.ErrorIs(t, err, domain.ErrNoSuchAddress)

	networks, err := svc.Networks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Network{{Name: "public"}}, networks)
}

func TestService_LinksAndKeepalives(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	for _, h := range []string{"a", "b"} {
		_, err := svc.AddMachine(ctx, MachineRequest{Hostname: h})
		require.NoError(t, err)
	}

	require.NoError(t, svc.SetLink(ctx, domain.NetworkLink{Network: "public", OtherNetwork: "vpn", Priority: 10}))
	require.NoError(t, svc.SetKeepalive(ctx, domain.WireguardKeepalive{SourceMachine: "a", TargetMachine: "b", IntervalSec: 25}))

	err := svc.SetKeepalive(ctx, domain.WireguardKeepalive{SourceMachine: "a", TargetMachine: "ghost", IntervalSec: 25})
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	priority, ok := snapshot.Index.Lookup("public", "vpn")
	assert.True(t, ok)
	assert.Equal(t, 10, priority)
	_, ok = snapshot.Index.Lookup("vpn", "public")
	assert.False(t, ok)
	assert.Len(t, snapshot.Keepalives, 1)

	require.NoError(t, svc.RemoveLink(ctx, "public", "vpn"))
	assert.ErrorIs(t, svc.RemoveLink(ctx, "public", "vpn"), repository.ErrNotFound)
	require.NoError(t, svc.RemoveKeepalive(ctx, "a", "b"))
	assert.ErrorIs(t, svc.RemoveKeepalive(ctx, "a", "b"), repository.ErrNotFound)
}

func TestService_Providers(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	p, err := svc.AddProvider(ctx, "hetzner", "ops@example.com")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	m, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1", ProviderID: &p.ID, ProviderReference: testutil.StrPtr("EX42")})
	require.NoError(t, err)
	assert.Equal(t, p.ID, *m.ProviderID)
	assert.Equal(t, "EX42", *m.ProviderReference)
}

func TestService_WireguardPrivateKey(t *testing.T) {
	svc := newTestService(t, testSettings())
	ctx := context.Background()

	_, err := svc.AddMachine(ctx, MachineRequest{Hostname: "web1"})
	require.NoError(t, err)

	key, err := svc.WireguardPrivateKey(ctx, "web1")
	require.NoError(t, err)
	assert.Equal(t, "priv1", key)

	_, err = svc.WireguardPrivateKey(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}
