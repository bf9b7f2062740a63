package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/jbweber/homelab/infrabase/internal/migrations"
)

// Datastore wraps the SQLite database holding the inventory
type Datastore struct {
	DB *sql.DB
}

// FileDSN returns a DSN for the database file at path. Foreign keys are
// enabled on every connection and transactions take the write lock at
// BEGIN, which keeps read-then-insert sequences such as address allocation
// consistent between concurrent commands.
func FileDSN(path string) string {
	return "file:" + path + "?" + connectionParams().Encode()
}

// MemoryDSN returns a DSN for a named shared in-memory database
func MemoryDSN(name string) string {
	params := connectionParams()
	params.Set("mode", "memory")
	params.Set("cache", "shared")
	return "file:" + name + "?" + params.Encode()
}

func connectionParams() url.Values {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_txlock", "immediate")
	return params
}

// Open opens the database at dsn and runs migrations.
func Open(dsn string) (*Datastore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Datastore{DB: db}, nil
}

// Close closes the underlying database
func (ds *Datastore) Close() error {
	return ds.DB.Close()
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (ds *Datastore) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ds.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			logrus.WithError(rollbackErr).Warn("failed to roll back transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// runMigrations runs all database migrations
func runMigrations(db *sql.DB) error {
	migrator := migrations.NewMigrator(db)

	for _, migration := range migrations.All() {
		migrator.AddMigration(migration)
	}

	if err := migrator.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
