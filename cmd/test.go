package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/visibility-cli/internal/runner"
)

var (
	testCampaignID  string
	testProspectIDs []string
	testDryRun      bool
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run visibility tests for a campaign's scheduled prospects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Runner.RunCampaign(ctx, testCampaignID, runner.RunOptions{
			ProspectIDs: testProspectIDs,
			DryRun:      testDryRun,
		})
		if err != nil {
			return err
		}

		fmt.Printf("total=%d processed=%d runs_created=%d failed=%d\n",
			result.Total, result.Processed, result.RunsCreated, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  FAILED %s (%s): %s\n", e.Name, e.ProspectID, e.Error)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().StringVar(&testCampaignID, "campaign", "", "campaign id (required)")
	testCmd.Flags().StringSliceVar(&testProspectIDs, "prospect", nil, "restrict to specific prospect ids")
	testCmd.Flags().BoolVar(&testDryRun, "dry-run", false, "simulate providers instead of calling them")
	_ = testCmd.MarkFlagRequired("campaign")
	rootCmd.AddCommand(testCmd)
}
