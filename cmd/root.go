// Package cmd contains the CLI entrypoints.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "comfy-agent",
	Short: "Retrieval-augmented chat backend for ComfyUI tutorial transcripts",
	Long: `comfy-agent answers questions about ComfyUI tutorial videos.

It embeds incoming questions, retrieves the most relevant transcript
chunks from the vector index, and generates grounded answers over a
websocket chat endpoint.

Run "comfy-agent serve" to start the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
