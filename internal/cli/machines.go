package cli

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/inventory"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) listMachinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List machines",
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
				var addresses []string
				for _, addr := range m.Addresses {
					addresses = append(addresses, addr.Network+"="+addr.Address.String())
				}
				rows = append(rows, []string{
					m.Hostname,
					addrCell(m.WireguardIPv4Address),
					addrCell(m.WireguardIPv6Address),
					m.Owner,
					render.Cell(m.ProviderID),
					render.Cell(m.ProviderReference),
					strings.Join(addresses, " "),
				})
			}
			return render.WriteTable(cmd.OutOrStdout(),
				[]string{"HOSTNAME", "WG IPV4", "WG IPV6", "OWNER", "PROV", "REFERENCE", "ADDRESSES"}, rows)
		},
	}
}

func (a *app) addMachineCmd() *cobra.Command {
	var (
		ipv4, ipv6 string
		provider   int64
	)
	cmd := &cobra.Command{
		Use:   "add HOSTNAME",
		Short: "Add a machine, allocating WireGuard addresses and keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := inventory.MachineRequest{Hostname: args[0]}

			var err error
			req.Owner, _ = cmd.Flags().GetString("owner")
			if req.SSHPort, err = optionalInt(cmd, "ssh-port"); err != nil {
				return err
			}
			if req.SSHUser, err = optionalString(cmd, "ssh-user"); err != nil {
				return err
			}
			if req.WireguardPort, err = optionalInt(cmd, "wireguard-port"); err != nil {
				return err
			}
			if req.ProviderReference, err = optionalString(cmd, "provider-reference"); err != nil {
				return err
			}
			req.WireguardPrivateKey, _ = cmd.Flags().GetString("wireguard-private-key")
			if cmd.Flags().Changed("provider") {
				req.ProviderID = &provider
			}
			if ipv4 != "" {
				if req.WireguardIPv4Address, err = netip.ParseAddr(ipv4); err != nil {
					return fmt.Errorf("invalid --wireguard-ipv4-address: %w", err)
				}
			}
			if ipv6 != "" {
				if req.WireguardIPv6Address, err = netip.ParseAddr(ipv6); err != nil {
					return fmt.Errorf("invalid --wireguard-ipv6-address: %w", err)
				}
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			m, err := svc.AddMachine(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.Hostname, m.WireguardIPv4Address, m.WireguardIPv6Address)
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Owner (default DEFAULT_OWNER)")
	cmd.Flags().Int("ssh-port", 0, "SSH port (default DEFAULT_SSH_PORT)")
	cmd.Flags().String("ssh-user", "", "SSH user (default DEFAULT_SSH_USER)")
	cmd.Flags().StringVar(&ipv4, "wireguard-ipv4-address", "", "WireGuard IPv4 address (default: first unused in WIREGUARD_IPV4_START..END)")
	cmd.Flags().StringVar(&ipv6, "wireguard-ipv6-address", "", "WireGuard IPv6 address (default: first unused in WIREGUARD_IPV6_START..END)")
	cmd.Flags().Int("wireguard-port", 0, "WireGuard listen port (default DEFAULT_WIREGUARD_PORT)")
	cmd.Flags().Int64Var(&provider, "provider", 0, "Provider id (default DEFAULT_PROVIDER)")
	cmd.Flags().String("provider-reference", "", "Contract ID, server number, etc. at the provider")
	cmd.Flags().String("wireguard-private-key", "", "Import an existing WireGuard private key instead of generating one")
	return cmd
}

func (a *app) removeMachineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm HOSTNAME",
		Short: "Remove a machine with its addresses and keepalives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.RemoveMachine(cmd.Context(), args[0])
		},
	}
}

func (a *app) wireguardPrivkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wg-privkey HOSTNAME",
		Short: "Print a machine's private WireGuard key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			key, err := svc.WireguardPrivateKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func addrCell(a netip.Addr) string {
	if !a.IsValid() {
		return render.Absent
	}
	return a.String()
}
