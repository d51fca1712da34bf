package main

import (
	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running examkit server via HTTP.

These commands require a running server (examkit serve).
Use --server to specify a custom server URL.

Examples:
  examkit api health               # Check server health
  examkit api exams list           # List all exams
  examkit api exams parse <id>     # Start parsing an exam`,
}

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Exam job management commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8930", "Server URL",
	)

	// Health endpoint at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))

	// Exams as subcommand group
	for _, ep := range endpoints.ExamCommands() {
		examsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(apiCmd)
}
