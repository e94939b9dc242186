package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	scoreCampaignID  string
	scoreProspectIDs []string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a campaign's tested prospects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Scoring.RunScoring(ctx, scoreCampaignID, scoreProspectIDs)
		if err != nil {
			return err
		}

		fmt.Printf("total=%d scored=%d eligible=%d\n", result.Total, result.Scored, result.Eligible)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCampaignID, "campaign", "", "campaign id (required)")
	scoreCmd.Flags().StringSliceVar(&scoreProspectIDs, "prospect", nil, "restrict to specific prospect ids")
	_ = scoreCmd.MarkFlagRequired("campaign")
	rootCmd.AddCommand(scoreCmd)
}
