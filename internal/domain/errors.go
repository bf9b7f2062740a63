package domain

import "errors"

// Inventory errors that can be checked with errors.Is().
// All of them are terminal for the current command.
var (
	// ErrNoSuchMachine is returned when a requested hostname is not in the inventory
	ErrNoSuchMachine = errors.New("no such machine")

	// ErrMachineHasNoWireguard is returned when a WireGuard render is requested
	// for a machine without a WireGuard address, port or key
	ErrMachineHasNoWireguard = errors.New("machine has no WireGuard interface")

	// ErrNoAddressAvailable is returned when an address pool is exhausted
	ErrNoAddressAvailable = errors.New("no address available")

	// ErrPortOutOfRange is returned when a stored port does not fit 0-65535
	ErrPortOutOfRange = errors.New("port out of range 0-65535")

	// ErrNoSuchAddress is returned when an address to remove does not exist
	ErrNoSuchAddress = errors.New("no such address")
)
