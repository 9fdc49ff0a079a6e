package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/config"
	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/runstore"
)

var cfgFile string
var prowlConfig *config.Config

// runRegistry tracks run lifecycles for the process. Commands write
// run state here and read status snapshots back from it.
var runRegistry = runstore.NewRegistry()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prowl",
	Short: "Prowl - exploratory web testing with reproducibility checks",
	Long: `Prowl generates candidate test cases for a web application, ranks
them, executes the top candidates twice to verify reproducibility, and
learns from outcomes and your feedback to generate better cases next time.

Use 'prowl run' to execute a testing pass, 'prowl feedback' to rate
generated cases, and 'prowl report' to review learning progress.`,
}

var version = "dev"

// SetVersion sets the version shown by the version flag.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .prowl/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().StringP("project", "p", ".", "project directory")
}

// initConfig initializes logging and loads configuration.
func initConfig() {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	projectDir, _ := rootCmd.PersistentFlags().GetString("project")

	if err := logging.Initialize(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}
	if verbose {
		logging.GetLogger().SetLevel(logging.DEBUG)
	}

	loader := config.NewLoader(projectDir)
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		logging.Warn("Failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	prowlConfig = cfg
}
