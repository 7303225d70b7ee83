// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"snowdemo/cli/internal/probe"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var healthAddr string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query a running server's gRPC health probe",
	Long: `Exits non-zero unless the probe at --addr reports SERVING. Suitable as a
container health check for "snowdemo serve --health-addr".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		resp, err := probe.Check(ctx, healthAddr)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), probe.Format(resp))
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("status %s", resp.GetStatus())
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "127.0.0.1:8502", "Health probe address")
	rootCmd.AddCommand(healthCmd)
}
