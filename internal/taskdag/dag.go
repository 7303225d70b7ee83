// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package taskdag declares warehouse task graphs and turns them into task DDL.
//
// A DAG deploys as one root task named after the DAG plus one task per
// declared Task, named "<dag>$<task>". Tasks without predecessors run AFTER
// the root; the remaining tasks run AFTER each of their predecessors, so the
// warehouse scheduler enforces the ordering.
package taskdag

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/warehouse"
)

// Task is one unit of remote work.
type Task struct {
	Name       string `yaml:"name"`
	Definition string `yaml:"definition"`
	Comment    string `yaml:"comment,omitempty"`
}

// Edge says To starts only after From completes successfully.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DAG is a named set of tasks and ordering edges.
type DAG struct {
	Name      string `yaml:"name"`
	Warehouse string `yaml:"warehouse"`
	// ScheduleMinutes of zero means the DAG only runs when executed manually.
	ScheduleMinutes int    `yaml:"schedule_minutes,omitempty"`
	Tasks           []Task `yaml:"tasks"`
	Edges           []Edge `yaml:"edges"`
}

// ETLName is the name of the built-in employee ETL DAG.
const ETLName = "etl_dag_orchestrator"

// ETLEmployee returns the employee load DAG: dim_employee first, then
// fact_employee_pay once it succeeds.
func ETLEmployee(cfg config.DAG) *DAG {
	db, schema := cfg.Database, cfg.Schema
	if db == "" {
		db = "LEARNING_DB"
	}
	if schema == "" {
		schema = "ETL"
	}
	wh := cfg.Warehouse
	if wh == "" {
		wh = "COMPUTE_WH"
	}

	return &DAG{
		Name:            ETLName,
		Warehouse:       wh,
		ScheduleMinutes: cfg.ScheduleMinutes,
		Tasks: []Task{
			{
				Name:       "load_dim_employee",
				Definition: fmt.Sprintf("CALL %s.%s.table_updater('dim_employee');", db, schema),
				Comment:    "Load dimension table: dim_employee",
			},
			{
				Name:       "load_fact_employee_pay",
				Definition: fmt.Sprintf("CALL %s.%s.table_updater('fact_employee_pay');", db, schema),
				Comment:    "Load fact table: fact_employee_pay",
			},
		},
		Edges: []Edge{{From: "load_dim_employee", To: "load_fact_employee_pay"}},
	}
}

// Schedule returns the root task's schedule clause value, or "" for manual runs.
func (d *DAG) Schedule() string {
	if d.ScheduleMinutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%d MINUTE", d.ScheduleMinutes)
}

// TaskName returns the deployed name of a task.
func (d *DAG) TaskName(task string) string {
	return d.Name + "$" + task
}

// Validate checks names, edge endpoints and that the edges form no cycle.
func (d *DAG) Validate() error {
	var problems []string
	// Child tasks are named Name$task, which only stays one identifier
	// when Name is unquoted.
	if !warehouse.ValidIdentifier(d.Name) || strings.HasPrefix(d.Name, `"`) {
		problems = append(problems, fmt.Sprintf("invalid DAG name %q", d.Name))
	}
	if d.Warehouse != "" && !warehouse.ValidIdentifier(d.Warehouse) {
		problems = append(problems, fmt.Sprintf("invalid warehouse %q", d.Warehouse))
	}
	if d.ScheduleMinutes < 0 {
		problems = append(problems, "schedule_minutes must not be negative")
	}
	if len(d.Tasks) == 0 {
		problems = append(problems, "DAG has no tasks")
	}

	seen := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		switch {
		case !warehouse.ValidIdentifier(t.Name) || strings.HasPrefix(t.Name, `"`):
			problems = append(problems, fmt.Sprintf("invalid task name %q", t.Name))
		case seen[t.Name]:
			problems = append(problems, fmt.Sprintf("duplicate task %q", t.Name))
		case strings.TrimSpace(t.Definition) == "":
			problems = append(problems, fmt.Sprintf("task %q has no definition", t.Name))
		}
		seen[t.Name] = true
	}
	for _, e := range d.Edges {
		if !seen[e.From] {
			problems = append(problems, fmt.Sprintf("edge from unknown task %q", e.From))
		}
		if !seen[e.To] {
			problems = append(problems, fmt.Sprintf("edge to unknown task %q", e.To))
		}
		if e.From == e.To {
			problems = append(problems, fmt.Sprintf("task %q depends on itself", e.From))
		}
	}
	if len(problems) > 0 {
		return errors.New(errors.DAGInvalid, strings.Join(problems, "; "))
	}

	if order := d.order(); len(order) != len(d.Tasks) {
		return errors.New(errors.DAGInvalid, "task dependencies contain a cycle")
	}
	return nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// order returns task indices in dependency order (Kahn's algorithm). Ties
// keep declaration order. A result shorter than Tasks means a cycle.
func (d *DAG) order() []int {
	index := make(map[string]int, len(d.Tasks))
	for i, t := range d.Tasks {
		index[t.Name] = i
	}
	indeg := make([]int, len(d.Tasks))
	outgoing := make([][]int, len(d.Tasks))
	for _, e := range d.Edges {
		from, ok1 := index[e.From]
		to, ok2 := index[e.To]
		if !ok1 || !ok2 {
			continue
		}
		outgoing[from] = append(outgoing[from], to)
		indeg[to]++
	}

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	out := make([]int, 0, len(d.Tasks))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// predecessors returns the sorted names of tasks that must finish before task.
func (d *DAG) predecessors(task string) []string {
	var out []string
	for _, e := range d.Edges {
		if e.To == task {
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}
