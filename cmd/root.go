package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/cropsight/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cropsight",
	Short: "CropSight dataset and retraining API server",
	Long: `CropSight - dataset lifecycle and retraining orchestration for
plant disease detection.

The server manages the full path from raw field images to deployed models:
  • Quality-gated, deduplicated image staging
  • Immutable versioned dataset snapshots with training manifests
  • Training experiment scheduling and tracking
  • Model registry with a single active serving model
  • Live prediction logging with drift detection`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)
}

// loadConfig loads the configuration when a command needs it
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && cmd.Name() == "version" {
		return // Version command doesn't need config
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
