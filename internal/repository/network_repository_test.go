package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
	"github.com/jbweber/homelab/infrabase/internal/testutil"
)

func TestNetworkRepository_SaveIsIdempotent(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	repo := repository.NewNetworkRepository(ds.DB)
	ctx := context.Background()

	for _, name := range []string{"vpn", "public", "vpn", "lan10", "lan2"} {
		_, err := repo.Save(ctx, domain.Network{Name: name})
		require.NoError(t, err)
	}

	networks, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Network{{Name: "lan2"}, {Name: "lan10"}, {Name: "public"}, {Name: "vpn"}}, networks)

	exists, err := repo.ExistsByID(ctx, "public")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.Save(ctx, domain.Network{})
	assert.ErrorIs(t, err, repository.ErrInvalidEntity)
}

func TestNetworkRepository_Links(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	repo := repository.NewNetworkRepository(ds.DB)
	ctx := context.Background()

	testutil.SeedLink(t, ds, "public", "vpn", 10)
	testutil.SeedLink(t, ds, "public", "public", 5)
	testutil.SeedLink(t, ds, "vpn", "public", 1)

	// Re-prioritise an existing link
	require.NoError(t, repo.SaveLink(ctx, domain.NetworkLink{Network: "public", OtherNetwork: "vpn", Priority: 1}))

	links, err := repo.FindAllLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.NetworkLink{
		{Network: "public", OtherNetwork: "vpn", Priority: 1},
		{Network: "public", OtherNetwork: "public", Priority: 5},
		{Network: "vpn", OtherNetwork: "public", Priority: 1},
	}, links)

	require.NoError(t, repo.DeleteLink(ctx, "public", "vpn"))
	err = repo.DeleteLink(ctx, "public", "vpn")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNetworkRepository_LinkRequiresNetworks(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	repo := repository.NewNetworkRepository(ds.DB)

	err := repo.SaveLink(context.Background(), domain.NetworkLink{Network: "nope", OtherNetwork: "nada", Priority: 1})
	assert.Error(t, err)
}
