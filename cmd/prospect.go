package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var prospectCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Inspect prospects",
}

var prospectScoreCmd = &cobra.Command{
	Use:   "score <prospect-id>",
	Short: "Show a prospect's score and justification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Scoring.GetScore(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", report.Name, report.Status)
		if report.Score != nil {
			fmt.Printf("score: %.1f/10  eligible: %v\n", *report.Score, report.Eligible)
		} else {
			fmt.Println("score: not yet scored")
		}
		if len(report.Competitors) > 0 {
			fmt.Printf("competitors: %v\n", report.Competitors)
		}
		if report.Justification != "" {
			fmt.Printf("\n%s\n", report.Justification)
		}
		return nil
	},
}

func init() {
	prospectCmd.AddCommand(prospectScoreCmd)
	rootCmd.AddCommand(prospectCmd)
}
