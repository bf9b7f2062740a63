package testutil

import (
	"strings"
	"testing"

	"github.com/jbweber/homelab/infrabase/internal/datastore"
)

// NewTestDSN generates a DSN for an in-memory SQLite database for testing purposes.
func NewTestDSN(testName string) string {
	return datastore.MemoryDSN(strings.NewReplacer("/", "_", " ", "_").Replace(testName))
}

// SetupTestDatastore opens a migrated in-memory datastore named after the
// test. It is closed when the test finishes.
func SetupTestDatastore(t *testing.T) *datastore.Datastore {
	t.Helper()

	ds, err := datastore.Open(NewTestDSN(t.Name()))
	if err != nil {
		t.Fatalf("Failed to open test datastore: %v", err)
	}
	t.Cleanup(func() {
		if err := ds.Close(); err != nil {
			t.Logf("Warning: failed to close test datastore: %v", err)
		}
	})
	return ds
}
