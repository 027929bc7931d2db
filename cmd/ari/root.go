package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ari",
	Short: "Multi-agent assistant",
	Long: `Ari answers simple questions directly and decomposes complex
requests into a plan executed by a team of specialist worker agents.

With no arguments, launches the interactive TUI where you can type
requests and watch the agents work. Use "ari run" for one-shot
execution that prints to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
