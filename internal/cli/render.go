package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/config"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) sshConfigCmd() *cobra.Command {
	var forHostname string
	cmd := &cobra.Command{
		Use:   "ssh-config",
		Short: "Print the SSH config a machine uses to reach every other machine",
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
			return render.SSHConfig(cmd.OutOrStdout(), forHostname, snapshot)
		},
	}
	cmd.Flags().StringVar(&forHostname, "for", "", "Machine the config is generated for")
	_ = cmd.MarkFlagRequired("for")
	return cmd
}

func (a *app) wgQuickCmd() *cobra.Command {
	var forHostname string
	cmd := &cobra.Command{
		Use:   "wg-quick",
		Short: "Print a wg-quick configuration for a machine",
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
			return render.WgQuick(cmd.OutOrStdout(), forHostname, snapshot)
		},
	}
	cmd.Flags().StringVar(&forHostname, "for", "", "Machine the config is generated for")
	_ = cmd.MarkFlagRequired("for")
	return cmd
}

func (a *app) writeWireguardPeersCmd() *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "write-wg-peers",
		Short: "Write the Nix peers file of every WireGuard machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if template == "" {
				template = a.settings.WireguardPeersPathTemplate
			}
			if template == "" {
				return fmt.Errorf("%s is not set", config.KeyWireguardPeersTemplate)
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			snapshot, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			files, err := render.PeerFiles(snapshot, template)
			if err != nil {
				return err
			}

			for _, f := range files {
				if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
					return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
				}
				if err := os.WriteFile(f.Path, f.Content, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", f.Path, err)
				}
				a.log.WithFields(logrus.Fields{
					"hostname": f.Hostname,
					"path":     f.Path,
				}).Info("peers file written")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Path template (default WIREGUARD_PEERS_PATH_TEMPLATE)")
	return cmd
}

func (a *app) nixDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nix-data",
		Short: "Print the inventory as a Nix attribute set",
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
			return render.NixData(cmd.OutOrStdout(), snapshot)
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the inventory as YAML, without private keys",
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
			return render.Export(cmd.OutOrStdout(), snapshot)
		},
	}
}
