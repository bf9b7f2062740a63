package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
	"github.com/jbweber/homelab/infrabase/internal/testutil"
)

func TestLoadSnapshot(t *testing.T) {
	ds := testutil.SetupTestDatastore(t)
	ctx := context.Background()

	testutil.SeedLink(t, ds, "public", "public", 10)
	testutil.SeedMachine(t, ds, domain.Machine{
		Hostname:  "b",
		Addresses: []domain.MachineAddress{testutil.Address("public", "203.0.113.2", nil, nil)},
	})
	testutil.SeedMachine(t, ds, domain.Machine{Hostname: "a"})
	require.NoError(t, repository.NewKeepaliveRepository(ds.DB).Save(ctx, domain.WireguardKeepalive{
		SourceMachine: "a", TargetMachine: "b", IntervalSec: 25,
	}))

	err := ds.WithTx(ctx, func(tx *sql.Tx) error {
		snapshot, err := repository.LoadSnapshot(ctx, tx)
		require.NoError(t, err)

		require.Len(t, snapshot.Machines, 2)
		assert.Equal(t, "a", snapshot.Machines[0].Hostname)
		assert.Equal(t, []string{"public"}, snapshot.Machines[1].Networks)

		priority, ok := snapshot.Index.Lookup("public", "public")
		assert.True(t, ok)
		assert.Equal(t, 10, priority)

		interval, ok := snapshot.KeepaliveLookup().Lookup("a", "b")
		assert.True(t, ok)
		assert.Equal(t, 25, interval)

		_, err = snapshot.Machine("nope")
		assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
		return nil
	})
	require.NoError(t, err)
}
