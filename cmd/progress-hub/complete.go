package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/challenge-progress/internal/config"
)

func newCompleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <challenge-id>",
		Short: "Mark a challenge as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.coordinator.Complete(ctx, args[0])
			if err != nil {
				return err
			}

			status := "already completed"
			if res.NewlyCompleted {
				status = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (score %d, %d challenges)\n",
				res.ChallengeID, status, res.Score, res.Completed)
			return nil
		},
	}
}
