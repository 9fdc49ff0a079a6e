package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default .prowl/config.yaml in the project directory",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("url", "", "target URL to record in the config")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir, _ := rootCmd.PersistentFlags().GetString("project")
	loader := config.NewLoader(projectDir)

	if loader.IsInitialized() {
		return fmt.Errorf("config already exists at %s", loader.GetConfigPath())
	}

	cfg := config.DefaultConfig()
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.Target.URL = url
	}

	if err := loader.Save(cfg, loader.GetConfigPath()); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", loader.GetConfigPath())
	return nil
}
