package main

import (
	"docbase/internal/logging"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string, logger *logging.AppLogger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "docbase",
		Short:         "MCP server for a markdown document knowledge base",
		Long: `docbase stores markdown documents with YAML frontmatter in two buckets,
stdlib (per programming language) and spec (per project), and serves them
to MCP clients over stdio or HTTP with full-text search.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewInitCmd(logger),
		NewServeCmd(logger),
	)

	return rootCmd
}
