// Package cli implements the sermonctl command line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sermonimport/internal/config"
	"github.com/JonMunkholm/sermonimport/internal/core"
	"github.com/JonMunkholm/sermonimport/internal/database"
	"github.com/JonMunkholm/sermonimport/internal/logging"
)

// ServiceFactory opens the service the commands run against. The returned
// func releases the underlying store.
type ServiceFactory func(ctx context.Context) (*core.Service, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	// OpenService is replaced in tests. Nil uses OpenFromEnv.
	OpenService ServiceFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for sermonctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sermonctl",
		Short: "Check and import sermon schedules",
		Long: `sermonctl checks and imports sermon schedules from JSON or YAML files
against the same store the HTTP service uses.

The store is selected by DB_DRIVER (postgres, sqlite or memory) and the other
settings in the environment or a .env file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

// openService runs the configured factory.
func (o *RootOptions) openService(ctx context.Context) (*core.Service, func(), error) {
	open := o.OpenService
	if open == nil {
		open = OpenFromEnv(o.Verbose)
	}
	svc, closeFn, err := open(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return svc, closeFn, nil
}

// OpenFromEnv loads the service configuration from the environment, opens
// the configured store and builds a service on it. Logs go to stderr so
// they never mix with command output.
func OpenFromEnv(verbose bool) ServiceFactory {
	return func(ctx context.Context) (*core.Service, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		slog.SetDefault(logging.New(os.Stderr, level, cfg.Logging.Format))

		store, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		svc, err := core.NewService(store, cfg)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return svc, store.Close, nil
	}
}
