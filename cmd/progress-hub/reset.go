package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/challenge-progress/internal/config"
)

func newResetCmd(cfg *config.Config) *cobra.Command {
	var (
		yes              bool
		clearLeaderboard bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear progress, preferences and challenge payloads",
		Long: "Clear progress, preferences, translation history and per-challenge blobs.\n" +
			"The stable user id is kept. The leaderboard is kept unless --leaderboard is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.progress.Reset(ctx); err != nil {
				return err
			}
			if clearLeaderboard {
				if err := a.leaderboard.Clear(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	cmd.Flags().BoolVar(&clearLeaderboard, "leaderboard", false, "also clear the leaderboard")
	return cmd
}
