// Package inventory provisions and edits machines, addresses, links and
// keepalives. Every operation runs in one transaction.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/homelab/infrabase/internal/addrpool"
	"github.com/jbweber/homelab/infrabase/internal/config"
	"github.com/jbweber/homelab/infrabase/internal/datastore"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/repository"
	"github.com/jbweber/homelab/infrabase/internal/wgkeys"
)

// KeyGenerator creates WireGuard key pairs
type KeyGenerator func() (wgkeys.Keypair, error)

// Service edits the inventory
type Service struct {
	ds           *datastore.Datastore
	settings     *config.Settings
	log          logrus.FieldLogger
	generateKeys KeyGenerator
}

// NewService creates a Service over ds. Defaults for omitted values come
// from settings.
func NewService(ds *datastore.Datastore, settings *config.Settings, log logrus.FieldLogger) *Service {
	return &Service{
		ds:           ds,
		settings:     settings,
		log:          log,
		generateKeys: wgkeys.Generate,
	}
}

// WithKeyGenerator replaces the WireGuard key generator
func (s *Service) WithKeyGenerator(gen KeyGenerator) *Service {
	s.generateKeys = gen
	return s
}

// MachineRequest describes a machine to add. Nil or invalid fields are
// filled from settings or allocated.
type MachineRequest struct {
	Hostname             string
	Owner                string
	ProviderID           *int64
	ProviderReference    *string
	SSHPort              *int
	SSHUser              *string
	WireguardIPv4Address netip.Addr
	WireguardIPv6Address netip.Addr
	WireguardPort        *int
	WireguardPrivateKey  string // imported instead of generated when set
}

// AddressRequest describes an address to add to a machine
type AddressRequest struct {
	Hostname      string
	Network       string
	Address       netip.Addr
	SSHPort       *int
	WireguardPort *int
}

// AddMachine adds a machine, allocating unused WireGuard addresses and a
// fresh key pair
func (s *Service) AddMachine(ctx context.Context, req MachineRequest) (domain.Machine, error) {
	if err := validateHostname(req.Hostname); err != nil {
		return domain.Machine{}, err
	}

	owner := req.Owner
	if owner == "" {
		owner = s.settings.DefaultOwner
	}
	if owner == "" {
		return domain.Machine{}, fmt.Errorf("no owner was provided and %s is not set", config.KeyDefaultOwner)
	}

	machine := domain.Machine{
		Hostname:             req.Hostname,
		Owner:                owner,
		ProviderID:           firstInt64(req.ProviderID, s.settings.DefaultProvider),
		ProviderReference:    req.ProviderReference,
		SSHPort:              firstInt(req.SSHPort, s.settings.DefaultSSHPort),
		SSHUser:              req.SSHUser,
		WireguardIPv4Address: req.WireguardIPv4Address,
		WireguardIPv6Address: req.WireguardIPv6Address,
		WireguardPort:        firstInt(req.WireguardPort, s.settings.DefaultWireguardPort),
	}
	if machine.SSHUser == nil && s.settings.DefaultSSHUser != "" {
		user := s.settings.DefaultSSHUser
		machine.SSHUser = &user
	}
	if machine.WireguardIPv4Address.IsValid() && !machine.WireguardIPv4Address.Is4() {
		return domain.Machine{}, fmt.Errorf("WireGuard IPv4 address %s is not IPv4: %w", machine.WireguardIPv4Address, repository.ErrInvalidEntity)
	}
	if machine.WireguardIPv6Address.IsValid() && !machine.WireguardIPv6Address.Is6() {
		return domain.Machine{}, fmt.Errorf("WireGuard IPv6 address %s is not IPv6: %w", machine.WireguardIPv6Address, repository.ErrInvalidEntity)
	}

	var saved domain.Machine
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		machines := repository.NewMachineRepository(tx)

		exists, err := machines.ExistsByID(ctx, machine.Hostname)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("machine %q: %w", machine.Hostname, repository.ErrDuplicate)
		}

		if !machine.WireguardIPv4Address.IsValid() {
			if machine.WireguardIPv4Address, err = s.allocate(ctx, machines.ExistingWireguardIPv4, s.settings.IPv4Range); err != nil {
				return fmt.Errorf("could not allocate a WireGuard IPv4 address: %w", err)
			}
		}
		if !machine.WireguardIPv6Address.IsValid() {
			if machine.WireguardIPv6Address, err = s.allocate(ctx, machines.ExistingWireguardIPv6, s.settings.IPv6Range); err != nil {
				return fmt.Errorf("could not allocate a WireGuard IPv6 address: %w", err)
			}
		}

		keys, err := s.keypair(req.WireguardPrivateKey)
		if err != nil {
			return err
		}
		machine.WireguardPrivateKey = &keys.PrivateKey
		machine.WireguardPublicKey = &keys.PublicKey

		if err := repository.NewOwnerRepository(tx).Ensure(ctx, machine.Owner); err != nil {
			return err
		}
		saved, err = machines.Save(ctx, machine)
		return err
	})
	if err != nil {
		return domain.Machine{}, err
	}

	s.log.WithFields(logrus.Fields{
		"hostname":       saved.Hostname,
		"wireguard_ipv4": saved.WireguardIPv4Address,
		"wireguard_ipv6": saved.WireguardIPv6Address,
	}).Info("machine added")
	return saved, nil
}

// keypair derives the public key of an imported private key, or generates
// a fresh pair
func (s *Service) keypair(privateKey string) (wgkeys.Keypair, error) {
	if privateKey == "" {
		return s.generateKeys()
	}
	publicKey, err := wgkeys.PublicKey(privateKey)
	if err != nil {
		return wgkeys.Keypair{}, fmt.Errorf("invalid WireGuard private key: %w", repository.ErrInvalidEntity)
	}
	return wgkeys.Keypair{PrivateKey: privateKey, PublicKey: publicKey}, nil
}

func (s *Service) allocate(
	ctx context.Context,
	existing func(context.Context) (addrpool.Set, error),
	bounds func() (netip.Addr, netip.Addr, error),
) (netip.Addr, error) {
	start, end, err := bounds()
	if err != nil {
		return netip.Addr{}, err
	}
	used, err := existing(ctx)
	if err != nil {
		return netip.Addr{}, err
	}
	return addrpool.FindUnused(used, start, end)
}

// RemoveMachine deletes a machine with its addresses and keepalives
func (s *Service) RemoveMachine(ctx context.Context, hostname string) error {
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		return noSuchMachine(repository.NewMachineRepository(tx).DeleteByID(ctx, hostname), hostname)
	})
	if err != nil {
		return err
	}
	s.log.WithField("hostname", hostname).Info("machine removed")
	return nil
}

// AddAddress adds an address to a machine, creating the network if needed.
// Omitted ports default to the configured SSH and WireGuard ports.
func (s *Service) AddAddress(ctx context.Context, req AddressRequest) error {
	if req.Network == "" || !req.Address.IsValid() {
		return fmt.Errorf("network and address are required: %w", repository.ErrInvalidEntity)
	}
	address := domain.MachineAddress{
		Hostname:      req.Hostname,
		Network:       req.Network,
		Address:       req.Address.Unmap(),
		SSHPort:       firstInt(req.SSHPort, s.settings.DefaultSSHPort),
		WireguardPort: firstInt(req.WireguardPort, s.settings.DefaultWireguardPort),
	}

	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireMachine(ctx, tx, req.Hostname); err != nil {
			return err
		}
		if _, err := repository.NewNetworkRepository(tx).Save(ctx, domain.Network{Name: req.Network}); err != nil {
			return err
		}
		return repository.NewAddressRepository(tx).Add(ctx, address)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"hostname": address.Hostname,
		"network":  address.Network,
		"address":  address.Address,
	}).Info("address added")
	return nil
}

// RemoveAddress removes one address of a machine
func (s *Service) RemoveAddress(ctx context.Context, hostname, network string, address netip.Addr) error {
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		return repository.NewAddressRepository(tx).Remove(ctx, domain.MachineAddress{
			Hostname: hostname,
			Network:  network,
			Address:  address.Unmap(),
		})
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"hostname": hostname,
		"network":  network,
		"address":  address,
	}).Info("address removed")
	return nil
}

// AddNetwork creates a network
func (s *Service) AddNetwork(ctx context.Context, name string) error {
	return s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := repository.NewNetworkRepository(tx).Save(ctx, domain.Network{Name: name})
		return err
	})
}

// Networks lists all networks
func (s *Service) Networks(ctx context.Context) ([]domain.Network, error) {
	return repository.NewNetworkRepository(s.ds.DB).FindAll(ctx)
}

// SetLink permits connections from network to otherNetwork at priority,
// creating both networks if needed
func (s *Service) SetLink(ctx context.Context, link domain.NetworkLink) error {
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		networks := repository.NewNetworkRepository(tx)
		for _, name := range []string{link.Network, link.OtherNetwork} {
			if _, err := networks.Save(ctx, domain.Network{Name: name}); err != nil {
				return err
			}
		}
		return networks.SaveLink(ctx, link)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"network":       link.Network,
		"other_network": link.OtherNetwork,
		"priority":      link.Priority,
	}).Info("link set")
	return nil
}

// RemoveLink removes the link from network to otherNetwork
func (s *Service) RemoveLink(ctx context.Context, network, otherNetwork string) error {
	return s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		return repository.NewNetworkRepository(tx).DeleteLink(ctx, network, otherNetwork)
	})
}

// SetKeepalive sets the PersistentKeepalive from source to target
func (s *Service) SetKeepalive(ctx context.Context, keepalive domain.WireguardKeepalive) error {
	return s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		for _, hostname := range []string{keepalive.SourceMachine, keepalive.TargetMachine} {
			if err := s.requireMachine(ctx, tx, hostname); err != nil {
				return err
			}
		}
		return repository.NewKeepaliveRepository(tx).Save(ctx, keepalive)
	})
}

// RemoveKeepalive removes the keepalive from source to target
func (s *Service) RemoveKeepalive(ctx context.Context, source, target string) error {
	return s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		return repository.NewKeepaliveRepository(tx).Delete(ctx, source, target)
	})
}

// AddProvider creates a provider and returns it with its id
func (s *Service) AddProvider(ctx context.Context, name, email string) (domain.Provider, error) {
	var provider domain.Provider
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		provider, err = repository.NewProviderRepository(tx).Save(ctx, domain.Provider{Name: name, Email: email})
		return err
	})
	return provider, err
}

// Snapshot reads the whole inventory in one transaction
func (s *Service) Snapshot(ctx context.Context) (*repository.Snapshot, error) {
	var snapshot *repository.Snapshot
	err := s.ds.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		snapshot, err = repository.LoadSnapshot(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"machines": len(snapshot.Machines),
		"links":    snapshot.Index.Len(),
	}).Debug("inventory loaded")
	return snapshot, nil
}

// WireguardPrivateKey returns the private key of hostname
func (s *Service) WireguardPrivateKey(ctx context.Context, hostname string) (string, error) {
	machine, err := repository.NewMachineRepository(s.ds.DB).FindByID(ctx, hostname)
	if err != nil {
		return "", noSuchMachine(err, hostname)
	}
	if machine.WireguardPrivateKey == nil || *machine.WireguardPrivateKey == "" {
		return "", fmt.Errorf("%w: %q has no private key", domain.ErrMachineHasNoWireguard, hostname)
	}
	return *machine.WireguardPrivateKey, nil
}

func (s *Service) requireMachine(ctx context.Context, db repository.DBTX, hostname string) error {
	exists, err := repository.NewMachineRepository(db).ExistsByID(ctx, hostname)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q", domain.ErrNoSuchMachine, hostname)
	}
	return nil
}

// noSuchMachine translates a repository miss into domain.ErrNoSuchMachine
func noSuchMachine(err error, hostname string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %q", domain.ErrNoSuchMachine, hostname)
	}
	return err
}

var hostnameLabel = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// validateHostname accepts RFC 1123 host names only. Hostnames end up in
// file paths and SSH config blocks.
func validateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname is required: %w", repository.ErrInvalidEntity)
	}
	if len(hostname) > 253 {
		return fmt.Errorf("hostname %q is longer than 253 characters: %w", hostname, repository.ErrInvalidEntity)
	}
	for _, label := range strings.Split(hostname, ".") {
		if !hostnameLabel.MatchString(label) {
			return fmt.Errorf("hostname %q is not a valid RFC 1123 host name: %w", hostname, repository.ErrInvalidEntity)
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt64(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
