package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "llamakeeper",
	Short: "Character memory and autonomy backend for AI storytelling",
	Long:  "LlamaKeeper manages bounded character memories with relevance ranking and forgetting, and drives autonomous character actions through a local LLM.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
