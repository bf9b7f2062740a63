package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jbweber/homelab/infrabase/internal/addrpool"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/natsort"
)

// MachineRepository defines domain-specific operations for machines.
// Machines are identified by hostname.
type MachineRepository interface {
	Repository[domain.Machine, string]
	ExistingWireguardIPv4(ctx context.Context) (addrpool.Set, error)
	ExistingWireguardIPv6(ctx context.Context) (addrpool.Set, error)
}

// machineRepositoryImpl implements MachineRepository
type machineRepositoryImpl struct {
	db DBTX
}

// NewMachineRepository creates a new machine repository
func NewMachineRepository(db DBTX) MachineRepository {
	return &machineRepositoryImpl{db: db}
}

const machineColumns = `hostname, owner, provider_id, provider_reference, added_time,
	ssh_port, ssh_user, wireguard_ipv4_address, wireguard_ipv6_address,
	wireguard_port, wireguard_privkey, wireguard_pubkey`

// Save creates or updates a machine. Addresses are managed by the
// AddressRepository and are not written here.
func (r *machineRepositoryImpl) Save(ctx context.Context, machine domain.Machine) (domain.Machine, error) {
	if machine.Hostname == "" {
		return domain.Machine{}, fmt.Errorf("machine without hostname: %w", ErrInvalidEntity)
	}
	if machine.AddedTime.IsZero() {
		machine.AddedTime = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO machines (`+machineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hostname) DO UPDATE SET
			owner = excluded.owner,
			provider_id = excluded.provider_id,
			provider_reference = excluded.provider_reference,
			ssh_port = excluded.ssh_port,
			ssh_user = excluded.ssh_user,
			wireguard_ipv4_address = excluded.wireguard_ipv4_address,
			wireguard_ipv6_address = excluded.wireguard_ipv6_address,
			wireguard_port = excluded.wireguard_port,
			wireguard_privkey = excluded.wireguard_privkey,
			wireguard_pubkey = excluded.wireguard_pubkey`,
		machine.Hostname,
		machine.Owner,
		nullableInt64(machine.ProviderID),
		nullableString(machine.ProviderReference),
		formatTime(machine.AddedTime),
		nullableInt(machine.SSHPort),
		nullableString(machine.SSHUser),
		nullableAddr(machine.WireguardIPv4Address),
		nullableAddr(machine.WireguardIPv6Address),
		nullableInt(machine.WireguardPort),
		nullableString(machine.WireguardPrivateKey),
		nullableString(machine.WireguardPublicKey),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Machine{}, fmt.Errorf("machine %q conflicts with an existing WireGuard address: %w", machine.Hostname, ErrDuplicate)
		}
		return domain.Machine{}, fmt.Errorf("failed to save machine: %w", err)
	}

	return r.FindByID(ctx, machine.Hostname)
}

// FindByID retrieves a machine and its addresses by hostname
func (r *machineRepositoryImpl) FindByID(ctx context.Context, hostname string) (domain.Machine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE hostname = ?`, hostname)
	machine, err := scanMachine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Machine{}, fmt.Errorf("machine %q: %w", hostname, ErrNotFound)
		}
		return domain.Machine{}, fmt.Errorf("failed to find machine: %w", err)
	}

	addresses, err := NewAddressRepository(r.db).FindByHostname(ctx, hostname)
	if err != nil {
		return domain.Machine{}, err
	}
	attachAddresses(&machine, addresses)
	return machine, nil
}

// FindAll retrieves all machines with their addresses, naturally sorted by hostname
func (r *machineRepositoryImpl) FindAll(ctx context.Context) ([]domain.Machine, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+machineColumns+` FROM machines`)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	var machines []domain.Machine
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, machine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	addresses, err := NewAddressRepository(r.db).FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byHost := make(map[string][]domain.MachineAddress)
	for _, a := range addresses {
		byHost[a.Hostname] = append(byHost[a.Hostname], a)
	}
	for i := range machines {
		attachAddresses(&machines[i], byHost[machines[i].Hostname])
	}

	slices.SortStableFunc(machines, func(a, b domain.Machine) int {
		return natsort.Compare(a.Hostname, b.Hostname)
	})
	return machines, nil
}

// DeleteByID removes a machine. Its addresses and keepalives go with it.
func (r *machineRepositoryImpl) DeleteByID(ctx context.Context, hostname string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM machines WHERE hostname = ?", hostname)
	if err != nil {
		return fmt.Errorf("failed to delete machine: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("machine %q: %w", hostname, err)
	}
	return nil
}

// ExistsByID checks if a machine exists
func (r *machineRepositoryImpl) ExistsByID(ctx context.Context, hostname string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM machines WHERE hostname = ?", hostname).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check machine existence: %w", err)
	}
	return count > 0, nil
}

// ExistingWireguardIPv4 returns every assigned WireGuard IPv4 address
func (r *machineRepositoryImpl) ExistingWireguardIPv4(ctx context.Context) (addrpool.Set, error) {
	return r.existingAddresses(ctx, "wireguard_ipv4_address")
}

// ExistingWireguardIPv6 returns every assigned WireGuard IPv6 address
func (r *machineRepositoryImpl) ExistingWireguardIPv6(ctx context.Context) (addrpool.Set, error) {
	return r.existingAddresses(ctx, "wireguard_ipv6_address")
}

func (r *machineRepositoryImpl) existingAddresses(ctx context.Context, column string) (addrpool.Set, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+column+" FROM machines WHERE "+column+" IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", column, err)
	}
	defer rows.Close()

	set := addrpool.NewSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		addr, err := parseStoredAddr(raw)
		if err != nil {
			return nil, err
		}
		set.Add(addr)
	}
	return set, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (domain.Machine, error) {
	var (
		m                                     domain.Machine
		providerID, sshPort, wgPort           sql.NullInt64
		providerRef, sshUser, privkey, pubkey sql.NullString
		wgIPv4, wgIPv6                        sql.NullString
		addedTime                             string
	)
	err := row.Scan(&m.Hostname, &m.Owner, &providerID, &providerRef, &addedTime,
		&sshPort, &sshUser, &wgIPv4, &wgIPv6, &wgPort, &privkey, &pubkey)
	if err != nil {
		return domain.Machine{}, err
	}

	if m.AddedTime, err = parseTime(addedTime); err != nil {
		return domain.Machine{}, err
	}
	if m.WireguardIPv4Address, err = parseNullAddr(wgIPv4); err != nil {
		return domain.Machine{}, err
	}
	if m.WireguardIPv6Address, err = parseNullAddr(wgIPv6); err != nil {
		return domain.Machine{}, err
	}
	m.ProviderID = int64Ptr(providerID)
	m.ProviderReference = stringPtr(providerRef)
	m.SSHPort = intPtr(sshPort)
	m.SSHUser = stringPtr(sshUser)
	m.WireguardPort = intPtr(wgPort)
	m.WireguardPrivateKey = stringPtr(privkey)
	m.WireguardPublicKey = stringPtr(pubkey)
	return m, nil
}

// attachAddresses sets the machine's addresses and the distinct networks
// they are on, in address order
func attachAddresses(m *domain.Machine, addresses []domain.MachineAddress) {
	m.Addresses = addresses
	m.Networks = nil
	for _, a := range addresses {
		if !slices.Contains(m.Networks, a.Network) {
			m.Networks = append(m.Networks, a.Network)
		}
	}
}

// compareAddresses orders addresses by network name, then address
func compareAddresses(a, b domain.MachineAddress) int {
	if c := natsort.Compare(a.Hostname, b.Hostname); c != 0 {
		return c
	}
	if c := natsort.Compare(a.Network, b.Network); c != 0 {
		return c
	}
	return a.Address.Compare(b.Address)
}
