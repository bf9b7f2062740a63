package cli

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/inventory"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) addressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Manage the addresses machines are reachable at",
	}
	cmd.AddCommand(a.listAddressesCmd())
	cmd.AddCommand(a.addAddressCmd())
	cmd.AddCommand(a.removeAddressCmd())
	return cmd
}

func (a *app) listAddressesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			snapshot, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			var rows [][]string
			for _, m := range snapshot.Machines {
				for _, addr := range m.Addresses {
					rows = append(rows, []string{
						addr.Hostname,
						addr.Network,
						addr.Address.String(),
						render.Cell(addr.SSHPort),
						render.Cell(addr.WireguardPort),
					})
				}
			}
			return render.WriteTable(cmd.OutOrStdout(),
				[]string{"HOSTNAME", "NETWORK", "ADDRESS", "SSH", "WG"}, rows)
		},
	}
}

func (a *app) addAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add HOSTNAME NETWORK ADDRESS",
		Short: "Add an address to a machine",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddr(args[2])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[2], err)
			}
			req := inventory.AddressRequest{Hostname: args[0], Network: args[1], Address: addr}
			if req.SSHPort, err = optionalInt(cmd, "ssh-port"); err != nil {
				return err
			}
			if req.WireguardPort, err = optionalInt(cmd, "wireguard-port"); err != nil {
				return err
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.AddAddress(cmd.Context(), req)
		},
	}
	cmd.Flags().Int("ssh-port", 0, "SSH port on this address (default DEFAULT_SSH_PORT)")
	cmd.Flags().Int("wireguard-port", 0, "WireGuard port on this address (default DEFAULT_WIREGUARD_PORT)")
	return cmd
}

func (a *app) removeAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm HOSTNAME NETWORK ADDRESS",
		Short: "Remove an address from a machine",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddr(args[2])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[2], err)
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.RemoveAddress(cmd.Context(), args[0], args[1], addr)
		},
	}
}
