package migrations

import (
	"database/sql"
)

// All returns every migration in version order
func All() []Migration {
	var all []Migration
	all = append(all, GetInitialMigrations()...)
	all = append(all, GetPerformanceMigrations()...)
	return all
}

// GetInitialMigrations returns the migrations creating the inventory schema
func GetInitialMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_inventory_tables",
			Up: func(tx *sql.Tx) error {
				statements := []string{
					`CREATE TABLE owners (
						owner TEXT PRIMARY KEY
					)`,
					`CREATE TABLE providers (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						email TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE TABLE networks (
						name TEXT PRIMARY KEY
					)`,
					`CREATE TABLE network_links (
						name TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
						other_network TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
						priority INTEGER NOT NULL,
						PRIMARY KEY (name, other_network)
					)`,
					`CREATE TABLE machines (
						hostname TEXT PRIMARY KEY,
						owner TEXT NOT NULL REFERENCES owners(owner),
						provider_id INTEGER REFERENCES providers(id),
						provider_reference TEXT,
						added_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						ssh_port INTEGER,
						ssh_user TEXT,
						wireguard_ipv4_address TEXT UNIQUE,
						wireguard_ipv6_address TEXT UNIQUE,
						wireguard_port INTEGER,
						wireguard_privkey TEXT,
						wireguard_pubkey TEXT
					)`,
					`CREATE TABLE machine_addresses (
						hostname TEXT NOT NULL REFERENCES machines(hostname) ON DELETE CASCADE,
						network TEXT NOT NULL REFERENCES networks(name),
						address TEXT NOT NULL,
						ssh_port INTEGER,
						wireguard_port INTEGER,
						PRIMARY KEY (hostname, network, address)
					)`,
					`CREATE TABLE wireguard_keepalives (
						source_machine TEXT NOT NULL REFERENCES machines(hostname) ON DELETE CASCADE,
						target_machine TEXT NOT NULL REFERENCES machines(hostname) ON DELETE CASCADE,
						interval_sec INTEGER NOT NULL CHECK (interval_sec > 0),
						PRIMARY KEY (source_machine, target_machine)
					)`,
				}

				for _, stmt := range statements {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(tx *sql.Tx) error {
				// Drop tables in reverse order due to foreign key constraints
				tables := []string{
					"wireguard_keepalives",
					"machine_addresses",
					"machines",
					"network_links",
					"networks",
					"providers",
					"owners",
				}
				for _, table := range tables {
					if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
