package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) keepaliveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wg-keepalive",
		Short: "Manage WireGuard persistent keepalives",
	}
	cmd.AddCommand(a.listKeepalivesCmd())
	cmd.AddCommand(a.setKeepaliveCmd())
	cmd.AddCommand(a.removeKeepaliveCmd())
	return cmd
}

func (a *app) listKeepalivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List keepalives",
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
			keepalives := snapshot.Keepalives
			rows := make([][]string, 0, len(keepalives))
			for _, k := range keepalives {
				rows = append(rows, []string{k.SourceMachine, k.TargetMachine, render.IntCell(k.IntervalSec)})
			}
			return render.WriteTable(cmd.OutOrStdout(), []string{"SOURCE", "TARGET", "INTERVAL"}, rows)
		},
	}
}

func (a *app) setKeepaliveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set SOURCE TARGET INTERVAL",
		Short: "Send keepalives from SOURCE to TARGET every INTERVAL seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid interval %q: %w", args[2], err)
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.SetKeepalive(cmd.Context(), domain.WireguardKeepalive{
				SourceMachine: args[0],
				TargetMachine: args[1],
				IntervalSec:   interval,
			})
		},
	}
}

func (a *app) removeKeepaliveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm SOURCE TARGET",
		Short: "Remove a keepalive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.RemoveKeepalive(cmd.Context(), args[0], args[1])
		},
	}
}
