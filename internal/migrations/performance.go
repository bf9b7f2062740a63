package migrations

import (
	"database/sql"
)

// GetPerformanceMigrations returns index migrations
func GetPerformanceMigrations() []Migration {
	return []Migration{
		{
			Version: 10,
			Name:    "add_lookup_indices",
			Up: func(tx *sql.Tx) error {
				indices := []string{
					"CREATE INDEX IF NOT EXISTS idx_machine_addresses_network ON machine_addresses(network)",
					"CREATE INDEX IF NOT EXISTS idx_machines_owner ON machines(owner)",
					"CREATE INDEX IF NOT EXISTS idx_machines_provider_id ON machines(provider_id)",
					"CREATE INDEX IF NOT EXISTS idx_network_links_other_network ON network_links(other_network)",
					"CREATE INDEX IF NOT EXISTS idx_wireguard_keepalives_target ON wireguard_keepalives(target_machine)",
				}

				for _, indexSQL := range indices {
					if _, err := tx.Exec(indexSQL); err != nil {
						return err
					}
				}

				return nil
			},
			Down: func(tx *sql.Tx) error {
				indices := []string{
					"DROP INDEX IF EXISTS idx_machine_addresses_network",
					"DROP INDEX IF EXISTS idx_machines_owner",
					"DROP INDEX IF EXISTS idx_machines_provider_id",
					"DROP INDEX IF EXISTS idx_network_links_other_network",
					"DROP INDEX IF EXISTS idx_wireguard_keepalives_target",
				}

				for _, dropSQL := range indices {
					if _, err := tx.Exec(dropSQL); err != nil {
						return err
					}
				}

				return nil
			},
		},
	}
}
