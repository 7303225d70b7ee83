// Package main is the entry point for the snowdemo CLI.
// It serves the Cortex chat page and manages the ETL task DAG.
package main

import (
	"snowdemo/cli/cmd"
)

func main() {
	cmd.Execute()
}
