package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/feedback"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Trigger a retraining cycle if enough rated samples exist",
	RunE:  runRetrain,
}

func init() {
	rootCmd.AddCommand(retrainCmd)
}

func runRetrain(cmd *cobra.Command, args []string) error {
	cfg := prowlConfig
	store, err := feedback.NewStore(cfg.Learning.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	loop := feedback.NewLoopManager(store, nil, cfg.Learning.MinScore)
	result, err := loop.TriggerRetraining()
	if err != nil {
		return err
	}

	switch result.Status {
	case "completed":
		fmt.Printf("Retraining cycle recorded with %d samples\n", result.SampleCount)
	default:
		fmt.Printf("Not enough rated samples yet (%d available, need 10)\n", result.SampleCount)
	}
	return nil
}
