// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"snowdemo/cli/internal/llm"

	"github.com/spf13/cobra"
)

var testCortex bool

var testConnCmd = &cobra.Command{
	Use:   "testconn",
	Short: "Open a warehouse session and print its context",
	Long: `Resolves connection parameters, opens a fresh warehouse session and prints the
current user, database, schema, warehouse and role. With --cortex it also asks
the configured Cortex model a short question.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		stop := startInlineSpinner(cmd.OutOrStdout(), "Connecting to the warehouse", spinnerFrames, 120*time.Millisecond)
		acq, err := a.acquirer().Acquire(ctx, nil)
		stop()
		if err != nil {
			return reportError("Connection failed", err)
		}
		defer func() {
			if err := acq.Release(); err != nil {
				a.logger.Debug("release session", "error", err)
			}
		}()

		cur, err := acq.Session.CurrentContext(ctx)
		if err != nil {
			return reportError("Connection failed", err)
		}
		a.logger.Info("Connection succeeded. Current session context: " + cur.String())
		printKV("Session context", map[string]string{
			"User":      cur.User,
			"Database":  cur.Database,
			"Schema":    cur.Schema,
			"Warehouse": cur.Warehouse,
			"Role":      cur.Role,
			"Auth":      string(acq.Session.Params().Source),
		})

		if !testCortex {
			return nil
		}
		model := a.cortex(func(context.Context) (llm.Completer, func(), error) {
			return acq.Session, func() {}, nil
		})
		stop = startInlineSpinner(cmd.OutOrStdout(), "Asking Cortex", spinnerFrames, 120*time.Millisecond)
		reply, err := model.Generate(ctx, []llm.Message{llm.User("What is 2+2?")})
		stop()
		if err != nil {
			return reportError("Cortex call failed", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Response: %s\n", reply.Content)
		return nil
	},
}

func init() {
	testConnCmd.Flags().BoolVar(&testCortex, "cortex", false, "Also run a Cortex completion")
	rootCmd.AddCommand(testConnCmd)
}

