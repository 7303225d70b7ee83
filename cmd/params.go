// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"


	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show the resolved connection parameters with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		p, err := a.resolver.Resolve()
		if err != nil {
			return reportError("Could not resolve connection parameters", err)
		}
		printKV(fmt.Sprintf("Connection parameters (%s)", p.Source), p.Masked())
		if p.KeyPath != "" {
			pterm.Info.Printfln("Private key loaded from %s", p.KeyPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}
