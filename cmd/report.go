package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/feedback"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show performance metrics and improvement suggestions",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("days", 7, "trailing window in days")
}

func runReport(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	store, err := feedback.NewStore(prowlConfig.Learning.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	index := buildIndex(ctx, prowlConfig)

	loop := feedback.NewLoopManager(store, index, prowlConfig.Learning.MinScore)
	rep, err := loop.GenerateImprovementReport(ctx, days)
	if err != nil {
		return err
	}

	m := rep.Metrics
	fmt.Printf("Performance over the last %d days:\n", m.PeriodDays)
	fmt.Printf("  Tests executed:     %d\n", m.TotalTests)
	fmt.Printf("  Pass rate:          %.2f%%\n", m.PassRate)
	fmt.Printf("  Reproducibility:    %.2f%%\n", m.ReproducibilityRate)
	fmt.Printf("  Feedback received:  %d\n", m.FeedbackCount)
	fmt.Printf("  Avg feedback score: %.2f/5\n", m.AvgFeedbackScore)
	fmt.Printf("  Cases learned:      %d\n", rep.CasesLearned)
	fmt.Println("\nSuggestions:")
	for _, s := range rep.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}
