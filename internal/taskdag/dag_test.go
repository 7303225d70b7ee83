// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package taskdag

import (
	"strings"
	"testing"

	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/errors"
)

func defaultDAGConfig() config.DAG {
	return config.Default().DAG
}

func TestETLEmployee(t *testing.T) {
	d := ETLEmployee(defaultDAGConfig())

	if d.Name != "etl_dag_orchestrator" {
		t.Errorf("Name = %q, want etl_dag_orchestrator", d.Name)
	}
	if d.Warehouse != "COMPUTE_WH" {
		t.Errorf("Warehouse = %q, want COMPUTE_WH", d.Warehouse)
	}
	if len(d.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(d.Tasks))
	}
	if len(d.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(d.Edges))
	}
	if d.Edges[0] != (Edge{From: "load_dim_employee", To: "load_fact_employee_pay"}) {
		t.Errorf("Edges[0] = %+v, want load_dim_employee -> load_fact_employee_pay", d.Edges[0])
	}

	wantDefs := map[string]string{
		"load_dim_employee":      "CALL LEARNING_DB.ETL.table_updater('dim_employee');",
		"load_fact_employee_pay": "CALL LEARNING_DB.ETL.table_updater('fact_employee_pay');",
	}
	for _, task := range d.Tasks {
		if task.Definition != wantDefs[task.Name] {
			t.Errorf("%s definition = %q, want %q", task.Name, task.Definition, wantDefs[task.Name])
		}
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, ""},
		{60, "60 MINUTE"},
		{5, "5 MINUTE"},
	}
	for _, tt := range tests {
		cfg := defaultDAGConfig()
		cfg.ScheduleMinutes = tt.minutes
		if got := ETLEmployee(cfg).Schedule(); got != tt.want {
			t.Errorf("Schedule() with %d minutes = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	task := func(name string) Task { return Task{Name: name, Definition: "SELECT 1"} }

	tests := []struct {
		name    string
		dag     DAG
		wantMsg string
	}{
		{
			name:    "no tasks",
			dag:     DAG{Name: "d"},
			wantMsg: "no tasks",
		},
		{
			name:    "duplicate task",
			dag:     DAG{Name: "d", Tasks: []Task{task("a"), task("a")}},
			wantMsg: "duplicate task",
		},
		{
			name:    "unknown edge target",
			dag:     DAG{Name: "d", Tasks: []Task{task("a")}, Edges: []Edge{{From: "a", To: "b"}}},
			wantMsg: "unknown task",
		},
		{
			name: "cycle",
			dag: DAG{
				Name:  "d",
				Tasks: []Task{task("a"), task("b"), task("c")},
				Edges: []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "a"}},
			},
			wantMsg: "cycle",
		},
		{
			name:    "self edge",
			dag:     DAG{Name: "d", Tasks: []Task{task("a")}, Edges: []Edge{{From: "a", To: "a"}}},
			wantMsg: "itself",
		},
		{
			name:    "bad name",
			dag:     DAG{Name: "d; drop", Tasks: []Task{task("a")}},
			wantMsg: "invalid DAG name",
		},
		{
			name:    "quoted name",
			dag:     DAG{Name: `"Nightly"`, Tasks: []Task{task("a")}},
			wantMsg: "invalid DAG name",
		},
		{
			name:    "empty definition",
			dag:     DAG{Name: "d", Tasks: []Task{{Name: "a"}}},
			wantMsg: "no definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dag.Validate()
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if kind := errors.KindOf(err); kind != errors.DAGInvalid {
				t.Errorf("KindOf() = %q, want %q", kind, errors.DAGInvalid)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestStatements_Manual(t *testing.T) {
	d := ETLEmployee(defaultDAGConfig())
	got := d.Statements("LEARNING_DB", "ETL")

	want := []string{
		"ALTER TASK IF EXISTS LEARNING_DB.ETL.etl_dag_orchestrator SUSPEND",
		"CREATE OR REPLACE TASK LEARNING_DB.ETL.etl_dag_orchestrator\n  WAREHOUSE = COMPUTE_WH\n  AS\n  SELECT 'etl_dag_orchestrator'",
		"CREATE OR REPLACE TASK LEARNING_DB.ETL.etl_dag_orchestrator$load_dim_employee\n  WAREHOUSE = COMPUTE_WH\n  COMMENT = 'Load dimension table: dim_employee'\n  AFTER LEARNING_DB.ETL.etl_dag_orchestrator\n  AS\n  CALL LEARNING_DB.ETL.table_updater('dim_employee')",
		"CREATE OR REPLACE TASK LEARNING_DB.ETL.etl_dag_orchestrator$load_fact_employee_pay\n  WAREHOUSE = COMPUTE_WH\n  COMMENT = 'Load fact table: fact_employee_pay'\n  AFTER LEARNING_DB.ETL.etl_dag_orchestrator$load_dim_employee\n  AS\n  CALL LEARNING_DB.ETL.table_updater('fact_employee_pay')",
		"ALTER TASK LEARNING_DB.ETL.etl_dag_orchestrator$load_fact_employee_pay RESUME",
		"ALTER TASK LEARNING_DB.ETL.etl_dag_orchestrator$load_dim_employee RESUME",
	}

	if len(got) != len(want) {
		t.Fatalf("got %d statements, want %d:\n%s", len(got), len(want), strings.Join(got, "\n---\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d =\n%s\nwant\n%s", i, got[i], want[i])
		}
	}
	for _, s := range got {
		if strings.Contains(s, "SCHEDULE") {
			t.Errorf("manual DAG has a schedule clause: %s", s)
		}
	}
}

func TestStatements_Scheduled(t *testing.T) {
	cfg := defaultDAGConfig()
	cfg.ScheduleMinutes = 60
	got := ETLEmployee(cfg).Statements("LEARNING_DB", "ETL")

	if !strings.Contains(got[1], "SCHEDULE = '60 MINUTE'") {
		t.Errorf("root statement missing schedule:\n%s", got[1])
	}
	last := got[len(got)-1]
	if last != "ALTER TASK LEARNING_DB.ETL.etl_dag_orchestrator RESUME" {
		t.Errorf("last statement = %q, want root resume", last)
	}
}

func TestStatements_FanIn(t *testing.T) {
	d := &DAG{
		Name: "fan",
		Tasks: []Task{
			{Name: "join", Definition: "SELECT 3", Comment: "it's the join"},
			{Name: "left", Definition: "SELECT 1"},
			{Name: "right", Definition: "SELECT 2"},
		},
		Edges: []Edge{{From: "right", To: "join"}, {From: "left", To: "join"}},
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	got := d.Statements("DB", "S")

	// Declaration order is kept among ready tasks, dependents come last.
	if !strings.HasPrefix(got[2], "CREATE OR REPLACE TASK DB.S.fan$left") ||
		!strings.HasPrefix(got[3], "CREATE OR REPLACE TASK DB.S.fan$right") ||
		!strings.HasPrefix(got[4], "CREATE OR REPLACE TASK DB.S.fan$join") {
		t.Fatalf("unexpected order:\n%s", strings.Join(got, "\n---\n"))
	}
	if !strings.Contains(got[4], "AFTER DB.S.fan$left, DB.S.fan$right") {
		t.Errorf("join statement missing predecessors:\n%s", got[4])
	}
	if !strings.Contains(got[4], "COMMENT = 'it''s the join'") {
		t.Errorf("comment not escaped:\n%s", got[4])
	}
}
