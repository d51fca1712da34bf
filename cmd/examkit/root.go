package main

import (
	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "examkit",
	Short: "Exam PDF structuring pipeline",
	Long: `Examkit turns exam-dump PDFs into structured question banks.

The pipeline includes:
  - Positioned text and image extraction per page
  - Deterministic question structure detection (options, answers, explanations)
  - Noise and logo filtering with image deduplication
  - Checkpointed background parsing with pause and resume
  - Validation reports with anomaly scoring`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.examkit/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "examkit home directory (default: ~/.examkit)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
