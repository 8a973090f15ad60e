package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resubmitCmd = &cobra.Command{
	Use:   "resubmit",
	Short: "Resubmit batches that failed to reach the results sheet",
	Long: `Drains the spool of unsaved submissions with exponential backoff. Each batch
keeps its original submission timestamp and is removed once written.`,
	RunE: runResubmit,
}

func runResubmit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.resubmitter().Drain(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pending=%d resubmitted=%d failed=%d\n", sum.Pending, sum.Resubmitted, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d batches still unsaved", sum.Failed)
	}
	return nil
}
