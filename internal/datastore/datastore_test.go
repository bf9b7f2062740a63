package datastore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_InMemory(t *testing.T) {
	ds, err := Open(MemoryDSN("TestOpen_InMemory"))
	if err != nil {
		t.Fatalf("failed to create datastore: %v", err)
	}
	defer ds.Close()

	if ds.DB == nil {
		t.Fatal("expected DB to be initialized")
	}
	// Check that tables exist by attempting a simple query
	for _, query := range []string{
		"SELECT hostname, owner, wireguard_ipv4_address FROM machines",
		"SELECT hostname, network, address FROM machine_addresses",
		"SELECT name, other_network, priority FROM network_links",
		"SELECT source_machine, target_machine, interval_sec FROM wireguard_keepalives",
	} {
		rows, err := ds.DB.Query(query)
		if err != nil {
			t.Fatalf("query %q failed: %v", query, err)
		}
		rows.Close()
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infrabase.db")
	ds, err := Open(FileDSN(path))
	if err != nil {
		t.Fatalf("failed to create datastore: %v", err)
	}
	defer ds.Close()

	var enabled int
	if err := ds.DB.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("expected foreign keys to be enabled, got %d", enabled)
	}
}

func TestMemoryDSN(t *testing.T) {
	dsn := MemoryDSN("name")
	if !strings.HasPrefix(dsn, "file:name?") {
		t.Errorf("unexpected DSN prefix: %s", dsn)
	}
	for _, want := range []string{"mode=memory", "cache=shared", "_txlock=immediate", "_pragma=foreign_keys"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected %s in DSN, got %s", want, dsn)
		}
	}
}

func TestWithTx_Commit(t *testing.T) {
	ds, err := Open(MemoryDSN("TestWithTx_Commit"))
	if err != nil {
		t.Fatalf("failed to create datastore: %v", err)
	}
	defer ds.Close()

	err = ds.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO networks (name) VALUES ('public')")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	var count int
	if err := ds.DB.QueryRow("SELECT COUNT(*) FROM networks").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 network, got %d", count)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	ds, err := Open(MemoryDSN("TestWithTx_RollbackOnError"))
	if err != nil {
		t.Fatalf("failed to create datastore: %v", err)
	}
	defer ds.Close()

	boom := errors.New("boom")
	err = ds.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO networks (name) VALUES ('public')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := ds.DB.QueryRow("SELECT COUNT(*) FROM networks").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to discard the insert, got %d rows", count)
	}
}
