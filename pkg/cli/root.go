package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rxmux",
	Short: "rxmux serves HTTP routes as reactive packet pipelines",
	Long: `rxmux runs a demo server whose routes are composed from packet stream
operators: gates, responders, timeouts, forks and joins.

Configuration can be provided via a YAML or JSON file (--config), flags,
or the RXMUX_ADDR, RXMUX_LOG_LEVEL and RXMUX_LOG_FORMAT environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Run executes the root command and returns the process exit code.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// Execute runs the command tree and exits on failure.
// This is called by main.main().
func Execute() {
	if code := Run(); code != 0 {
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
