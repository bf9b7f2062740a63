package config

import (
	"database/sql"
	"time"
)

// OptimizeDatabaseConnection tunes the connection pool. Every command runs
// in a single write-locking transaction, so a small pool is enough even for
// the HTTP server.
func OptimizeDatabaseConnection(db *sql.DB) {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
}

// ApplyPragmaOptimizations applies SQLite-specific pragmas
func ApplyPragmaOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // Readers don't block the writer
		"PRAGMA synchronous = NORMAL", // Safe with WAL
		"PRAGMA busy_timeout = 5000",  // Wait for a concurrent command instead of failing
		"PRAGMA temp_store = MEMORY",
		"PRAGMA optimize",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}
