package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/infrabase/internal/render"
)

func (a *app) providerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage hosting providers",
	}
	cmd.AddCommand(a.listProvidersCmd())
	cmd.AddCommand(a.addProviderCmd())
	return cmd
}

func (a *app) listProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List providers",
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
			rows := make([][]string, 0, len(snapshot.Providers))
			for _, p := range snapshot.Providers {
				email := p.Email
				if email == "" {
					email = render.Absent
				}
				rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, email})
			}
			return render.WriteTable(cmd.OutOrStdout(), []string{"ID", "NAME", "EMAIL"}, rows)
		},
	}
}

func (a *app) addProviderCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a provider and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			provider, err := svc.AddProvider(cmd.Context(), args[0], email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), provider.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	return cmd
}
