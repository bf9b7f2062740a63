package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/natsort"
)

// NetworkRepository manages networks and the directed links between them
type NetworkRepository interface {
	Save(ctx context.Context, network domain.Network) (domain.Network, error)
	FindAll(ctx context.Context) ([]domain.Network, error)
	ExistsByID(ctx context.Context, name string) (bool, error)

	SaveLink(ctx context.Context, link domain.NetworkLink) error
	FindAllLinks(ctx context.Context) ([]domain.NetworkLink, error)
	DeleteLink(ctx context.Context, network, otherNetwork string) error
}

type networkRepositoryImpl struct {
	db DBTX
}

// NewNetworkRepository creates a new network repository
func NewNetworkRepository(db DBTX) NetworkRepository {
	return &networkRepositoryImpl{db: db}
}

// Save creates the network if it does not exist yet
func (r *networkRepositoryImpl) Save(ctx context.Context, network domain.Network) (domain.Network, error) {
	if network.Name == "" {
		return domain.Network{}, fmt.Errorf("network without name: %w", ErrInvalidEntity)
	}
	if _, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO networks (name) VALUES (?)", network.Name); err != nil {
		return domain.Network{}, fmt.Errorf("failed to save network: %w", err)
	}
	return network, nil
}

// FindAll retrieves all networks, naturally sorted by name
func (r *networkRepositoryImpl) FindAll(ctx context.Context) ([]domain.Network, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM networks")
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	defer rows.Close()

	var networks []domain.Network
	for rows.Next() {
		var n domain.Network
		if err := rows.Scan(&n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		networks = append(networks, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	slices.SortFunc(networks, func(a, b domain.Network) int {
		return natsort.Compare(a.Name, b.Name)
	})
	return networks, nil
}

// ExistsByID checks if a network exists
func (r *networkRepositoryImpl) ExistsByID(ctx context.Context, name string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM networks WHERE name = ?", name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check network existence: %w", err)
	}
	return count > 0, nil
}

// SaveLink creates or re-prioritises the link from network to otherNetwork.
// Both networks must exist.
func (r *networkRepositoryImpl) SaveLink(ctx context.Context, link domain.NetworkLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO network_links (name, other_network, priority) VALUES (?, ?, ?)
		ON CONFLICT(name, other_network) DO UPDATE SET priority = excluded.priority`,
		link.Network, link.OtherNetwork, link.Priority)
	if err != nil {
		return fmt.Errorf("failed to save link %s -> %s: %w", link.Network, link.OtherNetwork, err)
	}
	return nil
}

// FindAllLinks retrieves every link ordered by network, priority and other network
func (r *networkRepositoryImpl) FindAllLinks(ctx context.Context) ([]domain.NetworkLink, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, other_network, priority FROM network_links")
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []domain.NetworkLink
	for rows.Next() {
		var l domain.NetworkLink
		if err := rows.Scan(&l.Network, &l.OtherNetwork, &l.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	slices.SortFunc(links, func(a, b domain.NetworkLink) int {
		if c := natsort.Compare(a.Network, b.Network); c != 0 {
			return c
		}
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return natsort.Compare(a.OtherNetwork, b.OtherNetwork)
	})
	return links, nil
}

// DeleteLink removes the link from network to otherNetwork
func (r *networkRepositoryImpl) DeleteLink(ctx context.Context, network, otherNetwork string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM network_links WHERE name = ? AND other_network = ?", network, otherNetwork)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("link %s -> %s: %w", network, otherNetwork, err)
	}
	return nil
}
