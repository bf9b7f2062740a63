package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
)

func TestSetupTestDatastore(t *testing.T) {
	ds := SetupTestDatastore(t)
	require.NotNil(t, ds)
	require.NoError(t, ds.DB.Ping())

	var count int
	err := ds.DB.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='machines'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeedMachine(t *testing.T) {
	ds := SetupTestDatastore(t)

	m := SeedMachine(t, ds, domain.Machine{
		Hostname:  "web1",
		Addresses: []domain.MachineAddress{Address("public", "203.0.113.10", IntPtr(22), nil)},
	})
	assert.Equal(t, "test", m.Owner)
	assert.Equal(t, []string{"public"}, m.Networks)
	require.Len(t, m.Addresses, 1)
	assert.Equal(t, "web1", m.Addresses[0].Hostname)

	SeedLink(t, ds, "public", "public", 10)
	links, err := repository.NewNetworkRepository(ds.DB).FindAllLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.NetworkLink{{Network: "public", OtherNetwork: "public", Priority: 10}}, links)
}
