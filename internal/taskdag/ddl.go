// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package taskdag

import (
	"fmt"
	"strings"
)

func qualify(database, schema, name string) string {
	return database + "." + schema + "." + name
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Statements returns the DDL that deploys d into database.schema, in the
// order it must run. It assumes d has been validated.
//
// The root is suspended first because a started root blocks replacing its
// children. Children are resumed leaf first; the root is only resumed when it
// has a schedule, otherwise it stays suspended and runs via EXECUTE TASK.
func (d *DAG) Statements(database, schema string) []string {
	root := qualify(database, schema, d.Name)
	stmts := []string{fmt.Sprintf("ALTER TASK IF EXISTS %s SUSPEND", root)}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TASK %s", root)
	if d.Warehouse != "" {
		fmt.Fprintf(&b, "\n  WAREHOUSE = %s", d.Warehouse)
	}
	if s := d.Schedule(); s != "" {
		fmt.Fprintf(&b, "\n  SCHEDULE = %s", quote(s))
	}
	fmt.Fprintf(&b, "\n  AS\n  SELECT %s", quote(d.Name))
	stmts = append(stmts, b.String())

	order := d.order()
	children := make([]string, 0, len(order))
	for _, i := range order {
		t := d.Tasks[i]
		name := qualify(database, schema, d.TaskName(t.Name))
		children = append(children, name)

		after := []string{root}
		if preds := d.predecessors(t.Name); len(preds) > 0 {
			after = after[:0]
			for _, p := range preds {
				after = append(after, qualify(database, schema, d.TaskName(p)))
			}
		}

		b.Reset()
		fmt.Fprintf(&b, "CREATE OR REPLACE TASK %s", name)
		if d.Warehouse != "" {
			fmt.Fprintf(&b, "\n  WAREHOUSE = %s", d.Warehouse)
		}
		if t.Comment != "" {
			fmt.Fprintf(&b, "\n  COMMENT = %s", quote(t.Comment))
		}
		fmt.Fprintf(&b, "\n  AFTER %s", strings.Join(after, ", "))
		fmt.Fprintf(&b, "\n  AS\n  %s", strings.TrimRight(strings.TrimSpace(t.Definition), ";"))
		stmts = append(stmts, b.String())
	}

	for i := len(children) - 1; i >= 0; i-- {
		stmts = append(stmts, fmt.Sprintf("ALTER TASK %s RESUME", children[i]))
	}
	if d.Schedule() != "" {
		stmts = append(stmts, fmt.Sprintf("ALTER TASK %s RESUME", root))
	}
	return stmts
}

// HistoryQuery returns SQL listing recent runs of the DAG's root task.
func (d *DAG) HistoryQuery(database string) string {
	return fmt.Sprintf("SELECT * FROM TABLE(%s.INFORMATION_SCHEMA.TASK_HISTORY(TASK_NAME => %s)) ORDER BY SCHEDULED_TIME DESC",
		database, quote(d.Name))
}
