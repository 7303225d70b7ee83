// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/taskdag"
	"snowdemo/cli/internal/terminal"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	dagFile            string
	dagScheduleMinutes int
	dagDatabase        string
	dagSchema          string
	dagDryRun          bool
)

var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Deploy or run the ETL task DAG",
}

var dagDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create or replace the DAG's tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dagDryRun {
			return printDAG(cmd)
		}
		return runDAG(cmd, func(ctx context.Context, d *taskdag.Deployer, dag *taskdag.DAG, db, schema string) (string, error) {
			return d.Deploy(ctx, dag, db, schema)
		})
	},
}

var dagExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Trigger one run of the deployed DAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDAG(cmd, func(ctx context.Context, d *taskdag.Deployer, dag *taskdag.DAG, db, schema string) (string, error) {
			return d.Execute(ctx, dag, db, schema)
		})
	},
}

type dagAction func(ctx context.Context, d *taskdag.Deployer, dag *taskdag.DAG, database, schema string) (string, error)

// dagConfig applies command-line overrides to the configured DAG target.
func dagConfig(cmd *cobra.Command, cfg config.DAG) config.DAG {
	if cmd.Flags().Changed("file") {
		cfg.File = dagFile
	}
	if cmd.Flags().Changed("schedule-minutes") {
		cfg.ScheduleMinutes = dagScheduleMinutes
	}
	if dagDatabase != "" {
		cfg.Database = dagDatabase
	}
	if dagSchema != "" {
		cfg.Schema = dagSchema
	}
	return cfg
}

// printDAG writes the deployment statements without connecting.
func printDAG(cmd *cobra.Command) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	cfg := dagConfig(cmd, a.cfg.DAG)
	dag, err := taskdag.Resolve(cfg)
	if err != nil {
		return err
	}
	script := strings.Join(dag.Statements(cfg.Database, cfg.Schema), ";\n\n") + ";\n"
	return writeSQL(cmd.OutOrStdout(), script)
}

// writeSQL highlights SQL on a terminal and writes it verbatim otherwise.
func writeSQL(w io.Writer, script string) error {
	if terminal.IsInteractive() {
		if err := quick.Highlight(w, script, "sql", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := io.WriteString(w, script)
	return err
}

func runDAG(cmd *cobra.Command, action dagAction) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	cfg := dagConfig(cmd, a.cfg.DAG)

	dag, err := taskdag.Resolve(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	acq, err := a.acquirer().Acquire(ctx, nil)
	if err != nil {
		return reportError("Connection failed", err)
	}
	defer acq.Release()

	d := &taskdag.Deployer{Exec: acq.Session, Logger: a.logger}
	msg, err := action(ctx, d, dag, cfg.Database, cfg.Schema)
	if err != nil {
		return reportError("DAG operation failed", err)
	}
	pterm.Success.Println(msg)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Inspect runs with:")
	fmt.Fprintln(cmd.OutOrStdout(), "  "+dag.HistoryQuery(cfg.Database))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{dagDeployCmd, dagExecuteCmd} {
		c.Flags().StringVar(&dagFile, "file", "", "YAML file describing the DAG (default: built-in employee ETL)")
		c.Flags().StringVar(&dagDatabase, "database", "", "Target database (default from config)")
		c.Flags().StringVar(&dagSchema, "schema", "", "Target schema (default from config)")
	}
	dagDeployCmd.Flags().BoolVar(&dagDryRun, "dry-run", false, "Print the SQL statements instead of running them")
	dagDeployCmd.Flags().IntVar(&dagScheduleMinutes, "schedule-minutes", 0, "Run the root task every N minutes; 0 means manual execution only")
	dagCmd.AddCommand(dagDeployCmd, dagExecuteCmd)
	rootCmd.AddCommand(dagCmd)
}
