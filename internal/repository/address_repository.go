package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

// AddressRepository manages the addresses machines have on networks
type AddressRepository interface {
	Add(ctx context.Context, address domain.MachineAddress) error
	Remove(ctx context.Context, address domain.MachineAddress) error
	FindAll(ctx context.Context) ([]domain.MachineAddress, error)
	FindByHostname(ctx context.Context, hostname string) ([]domain.MachineAddress, error)
}

type addressRepositoryImpl struct {
	db DBTX
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepositoryImpl{db: db}
}

const addressColumns = "hostname, network, address, ssh_port, wireguard_port"

// Add records an address. Adding the same (hostname, network, address)
// twice returns ErrDuplicate.
func (r *addressRepositoryImpl) Add(ctx context.Context, address domain.MachineAddress) error {
	if !address.Address.IsValid() {
		return fmt.Errorf("address of %q on %q: %w", address.Hostname, address.Network, ErrInvalidEntity)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO machine_addresses ("+addressColumns+") VALUES (?, ?, ?, ?, ?)",
		address.Hostname,
		address.Network,
		address.Address.Unmap().String(),
		nullableInt(address.SSHPort),
		nullableInt(address.WireguardPort),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("address %s of %q on %q: %w", address.Address, address.Hostname, address.Network, ErrDuplicate)
		}
		return fmt.Errorf("failed to add address: %w", err)
	}
	return nil
}

// Remove deletes an address, returning domain.ErrNoSuchAddress when it
// does not exist
func (r *addressRepositoryImpl) Remove(ctx context.Context, address domain.MachineAddress) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM machine_addresses WHERE hostname = ? AND network = ? AND address = ?",
		address.Hostname, address.Network, address.Address.Unmap().String())
	if err != nil {
		return fmt.Errorf("failed to remove address: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%w: %s of %q on %q", domain.ErrNoSuchAddress, address.Address, address.Hostname, address.Network)
	}
	return nil
}

// FindAll retrieves every address, ordered by hostname, network and address
func (r *addressRepositoryImpl) FindAll(ctx context.Context) ([]domain.MachineAddress, error) {
	return r.query(ctx, "SELECT "+addressColumns+" FROM machine_addresses")
}

// FindByHostname retrieves the addresses of one machine
func (r *addressRepositoryImpl) FindByHostname(ctx context.Context, hostname string) ([]domain.MachineAddress, error) {
	return r.query(ctx, "SELECT "+addressColumns+" FROM machine_addresses WHERE hostname = ?", hostname)
}

func (r *addressRepositoryImpl) query(ctx context.Context, query string, args ...any) ([]domain.MachineAddress, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []domain.MachineAddress
	for rows.Next() {
		var (
			a               domain.MachineAddress
			raw             string
			sshPort, wgPort sql.NullInt64
		)
		if err := rows.Scan(&a.Hostname, &a.Network, &raw, &sshPort, &wgPort); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		if a.Address, err = parseStoredAddr(raw); err != nil {
			return nil, err
		}
		a.SSHPort = intPtr(sshPort)
		a.WireguardPort = intPtr(wgPort)
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	slices.SortStableFunc(addresses, compareAddresses)
	return addresses, nil
}
