package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) networkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Manage networks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			networks, err := svc.Networks(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(networks))
			for _, n := range networks {
				rows = append(rows, []string{n.Name})
			}
			return render.WriteTable(cmd.OutOrStdout(), []string{"NAME"}, rows)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Add a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.AddNetwork(cmd.Context(), args[0])
		},
	})
	return cmd
}

func (a *app) linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage which networks can reach which",
	}
	cmd.AddCommand(a.listLinksCmd())
	cmd.AddCommand(a.setLinkCmd())
	cmd.AddCommand(a.removeLinkCmd())
	return cmd
}

func (a *app) listLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List network links",
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
			rows := make([][]string, 0, len(snapshot.Links))
			for _, l := range snapshot.Links {
				rows = append(rows, []string{l.Network, l.OtherNetwork, render.IntCell(l.Priority)})
			}
			return render.WriteTable(cmd.OutOrStdout(), []string{"NETWORK", "OTHER NETWORK", "PRIORITY"}, rows)
		},
	}
}

func (a *app) setLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set NETWORK OTHER_NETWORK PRIORITY",
		Short: "Let machines on NETWORK reach machines on OTHER_NETWORK; lower priorities are preferred",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid priority %q: %w", args[2], err)
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.SetLink(cmd.Context(), domain.NetworkLink{
				Network:      args[0],
				OtherNetwork: args[1],
				Priority:     priority,
			})
		},
	}
}

func (a *app) removeLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NETWORK OTHER_NETWORK",
		Short: "Remove a network link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.RemoveLink(cmd.Context(), args[0], args[1])
		},
	}
}
