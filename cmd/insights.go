package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/feedback"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize recent feedback quality and index size",
	RunE:  runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg := prowlConfig
	store, err := feedback.NewStore(cfg.Learning.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	index := buildIndex(ctx, cfg)

	loop := feedback.NewLoopManager(store, index, cfg.Learning.MinScore)
	insights, err := loop.Insights()
	if err != nil {
		return err
	}

	fmt.Printf("Recent feedback: %d total, %d high quality, %d low quality\n",
		insights.TotalFeedback, insights.HighQuality, insights.LowQuality)
	fmt.Printf("Trend: %s\n", insights.Trend)

	if stats, err := index.Statistics(ctx); err == nil {
		fmt.Printf("Indexed test cases: %d\n", stats.TotalDocuments)
	}
	return nil
}
