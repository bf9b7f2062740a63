// Package cli implements the infrabase command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbweber/homelab/infrabase/internal/config"
	"github.com/jbweber/homelab/infrabase/internal/datastore"
	"github.com/jbweber/homelab/infrabase/internal/inventory"
	"github.com/jbweber/homelab/infrabase/internal/logging"
)

// app carries what the subcommands share. The database is opened on first
// use so that commands like --help never touch it.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	settings *config.Settings
	log      *logrus.Logger
	ds       *datastore.Datastore
}

// Execute runs the infrabase command line with os.Args
func Execute(ctx context.Context) error {
	a := &app{}
	err := newRootCommand(a).ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "infrabase",
		Short:         "The machine inventory system",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/infrabase/env)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Database path (overrides DATABASE_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(a.listMachinesCmd())
	root.AddCommand(a.addMachineCmd())
	root.AddCommand(a.removeMachineCmd())
	root.AddCommand(a.wireguardPrivkeyCmd())
	root.AddCommand(a.addressCmd())
	root.AddCommand(a.networkCmd())
	root.AddCommand(a.linkCmd())
	root.AddCommand(a.providerCmd())
	root.AddCommand(a.keepaliveCmd())
	root.AddCommand(a.sshConfigCmd())
	root.AddCommand(a.wgQuickCmd())
	root.AddCommand(a.writeWireguardPeersCmd())
	root.AddCommand(a.nixDataCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.serveCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	settings, err := config.Load(viper.New(), a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		settings.DatabasePath = a.dbPath
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}

	log, err := logging.NewWithOutput(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}

	a.settings = settings
	a.log = log
	return nil
}

// service opens the database if needed and returns an inventory service over it
func (a *app) service() (*inventory.Service, error) {
	if a.ds == nil {
		ds, err := a.settings.OpenDatabase()
		if err != nil {
			return nil, err
		}
		a.ds = ds
		a.log.WithField("path", a.settings.DatabasePath).Debug("database opened")
	}
	return inventory.NewService(a.ds, a.settings, a.log), nil
}

func (a *app) close() error {
	if a.ds == nil {
		return nil
	}
	err := a.ds.Close()
	a.ds = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// optionalInt returns the flag's value when it was given on the command line
func optionalInt(cmd *cobra.Command, name string) (*int, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optionalString returns the flag's value when it was given on the command line
func optionalString(cmd *cobra.Command, name string) (*string, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
