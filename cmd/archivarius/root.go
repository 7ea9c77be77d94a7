// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
root.go - Root Command and Process Lifecycle

This file owns everything that happens before and after a subcommand runs:
configuration loading, logger initialization, signal-aware context setup,
and the mapping from errors to exit codes. Subcommand files only declare
their cobra command and the operation it performs.

Exit code policy: 0 success, 1 operational failure, 2 bad invocation.
Usage errors (unknown flags, invalid --output, config problems) are printed
to stderr directly because the logger may not be initialized yet.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/config"
	"github.com/medistock/archivarius/internal/logging"
)

// Exit codes. Cron and systemd timers alert on non-zero, so every failure
// path must end in one of these.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
)

var (
	// Global flag values, bound in init.
	configFile   string
	outputFormat string

	// Loaded once in the root PersistentPreRunE, immutable afterwards.
	appCfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "archivarius",
		Short: "Backup engine for the MediStock inventory database",
		Long: `Archivarius captures, verifies, retains, and restores backups of the
MediStock inventory database.

Backups are written as compressed, encrypted artifacts with a JSON metadata
sidecar and a catalog row in DuckDB. Run it from cron for scheduled backups
and by hand for everything else.`,
		Version: backup.AppVersion,

		// Errors are rendered once in execute, with an exit code attached.
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if outputFormat != outputText && outputFormat != outputJSON {
				return &usageError{fmt.Errorf("invalid --output %q (want text or json)", outputFormat)}
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return &usageError{err}
			}
			appCfg = cfg

			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Caller: cfg.Logging.Caller,
			})
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "output format: text or json")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
}

// usageError marks an error as the caller's fault: wrong flags, wrong
// arguments, or unloadable configuration. These exit 2 instead of 1 so a
// broken cron line is distinguishable from a failed backup.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// execute runs the root command with a signal-aware context and converts
// the outcome into an exit code.
func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.Name())
		return exitUsage
	}

	logging.Error().Err(err).Msg("Command failed")
	return exitFailure
}

// runApp wraps a command body with the shared open/close lifecycle: build
// the app from the loaded configuration, run the body with the command
// context, then push metrics and release the database no matter how the
// body exits. The context carries a command-tagged logger so engine logs
// from concurrent cron invocations are attributable to their subcommand.
func runApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		defer a.pushMetrics()

		ctx := logging.ContextWithLogger(cmd.Context(),
			logging.With().Str("command", cmd.Name()).Logger())
		return fn(ctx, a, args)
	}
}
