package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate a generated test case",
	Long: `Record a 1-5 quality rating for a test case from a previous run.
High ratings feed the case back into the similarity index so future
generation learns from it.`,
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().String("run", "", "run ID the case was executed in")
	feedbackCmd.Flags().String("case", "", "test case ID")
	feedbackCmd.Flags().Int("score", 0, "quality score from 1 to 5")
	feedbackCmd.Flags().String("comment", "", "optional comment")
	feedbackCmd.Flags().String("type", "quality", "feedback type")
	feedbackCmd.MarkFlagRequired("run")
	feedbackCmd.MarkFlagRequired("case")
	feedbackCmd.MarkFlagRequired("score")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run")
	caseID, _ := cmd.Flags().GetString("case")
	score, _ := cmd.Flags().GetInt("score")
	comment, _ := cmd.Flags().GetString("comment")
	feedbackType, _ := cmd.Flags().GetString("type")

	cfg := prowlConfig
	store, err := feedback.NewStore(cfg.Learning.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	loop := feedback.NewLoopManager(store, buildIndex(ctx, cfg), cfg.Learning.MinScore)
	rec, err := loop.CollectUserFeedback(ctx, runID, caseID, score, comment, feedbackType)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded feedback %s: case %s scored %d/5\n", rec.ID, rec.TestcaseID, rec.Score)
	return nil
}
