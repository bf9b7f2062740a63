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

func TestProviderRepository(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	repo := repository.NewProviderRepository(ds.DB)
	ctx := context.Background()

	hetzner, err := repo.Save(ctx, domain.Provider{Name: "hetzner", Email: "ops@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, hetzner.ID)

	_, err = repo.Save(ctx, domain.Provider{Name: "hetzner"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	hetzner.Email = "noc@example.com"
	_, err = repo.Save(ctx, hetzner)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, hetzner.ID)
	require.NoError(t, err)
	assert.Equal(t, "noc@example.com", found.Email)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOwnerRepository(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	repo := repository.NewOwnerRepository(ds.DB)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "bob"))
	require.NoError(t, repo.Ensure(ctx, "alice"))
	require.NoError(t, repo.Ensure(ctx, "bob"))
	assert.ErrorIs(t, repo.Ensure(ctx, ""), repository.ErrInvalidEntity)

	owners, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}
