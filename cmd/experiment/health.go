package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/choice-experiment/internal/health"
)

var (
	healthAddr    string
	healthTimeout time.Duration
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe a running server's gRPC health endpoint",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "", "health endpoint (default EXPERIMENT_GRPC_ADDR)")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "probe timeout")
}

func runHealth(cmd *cobra.Command, _ []string) error {
	addr := healthAddr
	if addr == "" {
		addr = cfg.GRPCAddr
	}
	c, err := health.NewClient(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()
	status, err := c.Check(ctx, health.Service)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	if status != "SERVING" {
		return fmt.Errorf("%s is %s", addr, status)
	}
	return nil
}
