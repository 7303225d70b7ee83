// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for snowdemo. It serves the
// browser chat, runs the same chat turn in a terminal REPL, checks warehouse
// connectivity and deploys the ETL task DAG, using the Cobra CLI framework.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"snowdemo/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "snowdemo",
	Short: "Snowflake demo tooling: Cortex chat, connection checks and task DAGs",
	Long: `snowdemo serves a chat page backed by Snowflake Cortex, checks warehouse
connectivity with OAuth session tokens or key-pair credentials, and deploys the
employee ETL task DAG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("snowdemo %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var shown shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
