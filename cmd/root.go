// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Casedesk client.
// It implements subcommands for authentication, session inspection, screen
// navigation and state recovery using the Cobra CLI framework. The package
// handles command parsing, execution, and provides a terminal UI with
// spinners and progress indicators.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/config"
	"casedesk/cli/internal/logging"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "casedesk",
	Short:         "Casedesk terminal client",
	Long:          `Casedesk is a terminal client for the Casedesk support platform. It manages your authenticated session against the backend and gates access to application screens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			ctx := context.Background()
			cfg, _ := config.Load()
			be := backend.New(cfg.BackendURL, backend.DefaultEndpoints())

			backendVersion, err := be.GetVersion(ctx)
			if err != nil {
				backendVersion = "unknown"
			}
			fmt.Printf("casedesk %s\nbackend %s\n", Version, backendVersion)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during
// execution. Errors pass through the masking presenter so a token or password
// embedded in an error chain never reaches the terminal.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("casedesk", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show client and backend version information")
}
