// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package taskdag

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/warehouse"
)

// Execer runs DDL; *warehouse.Session satisfies it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecutionTriggered is the message returned by Execute.
const ExecutionTriggered = "DAG execution triggered!"

// Deployer submits DAGs to the warehouse scheduler.
type Deployer struct {
	Exec   Execer
	Logger *slog.Logger
}

func (d *Deployer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func checkTarget(database, schema string) error {
	if !warehouse.ValidIdentifier(database) || !warehouse.ValidIdentifier(schema) {
		return errors.New(errors.ConfigInvalid, fmt.Sprintf("invalid deployment target %s.%s", database, schema))
	}
	return nil
}

// Deploy creates or replaces every task of dag in database.schema and
// returns a one-line summary.
func (d *Deployer) Deploy(ctx context.Context, dag *DAG, database, schema string) (string, error) {
	if err := dag.Validate(); err != nil {
		return "", err
	}
	if err := checkTarget(database, schema); err != nil {
		return "", err
	}

	for i, stmt := range dag.Statements(database, schema) {
		start := time.Now()
		if _, err := d.Exec.ExecContext(ctx, stmt); err != nil {
			return "", errors.Wrap(errors.RemoteCallFailed,
				fmt.Sprintf("deploy %s: statement %d (%s)", dag.Name, i+1, firstLine(stmt)), err)
		}
		d.logger().Debug("task ddl applied", "dag", dag.Name, "statement", firstLine(stmt), "elapsed", time.Since(start))
	}

	scheduleMsg := " (manual execution only)"
	if dag.Schedule() != "" {
		scheduleMsg = fmt.Sprintf(" (scheduled every %d minutes)", dag.ScheduleMinutes)
	}
	return fmt.Sprintf("DAG '%s' deployed to %s.%s%s", dag.Name, database, schema, scheduleMsg), nil
}

// Execute triggers one run of the DAG's root task.
func (d *Deployer) Execute(ctx context.Context, dag *DAG, database, schema string) (string, error) {
	if err := checkTarget(database, schema); err != nil {
		return "", err
	}
	if !warehouse.ValidIdentifier(dag.Name) {
		return "", errors.New(errors.DAGInvalid, fmt.Sprintf("invalid DAG name %q", dag.Name))
	}
	if _, err := d.Exec.ExecContext(ctx, "EXECUTE TASK "+qualify(database, schema, dag.Name)); err != nil {
		return "", errors.Wrap(errors.RemoteCallFailed, "execute "+dag.Name, err)
	}
	return ExecutionTriggered, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
