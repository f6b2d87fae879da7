// Package main is the entry point for the docbase MCP server.
//
// The binary is a thin cobra CLI around the server packages:
//
//	docbase init   — write the initial configuration and storage layout
//	docbase serve  — start the MCP server over stdio or HTTP
//
// All diagnostics go to the logging package (stderr or a log file),
// never stdout: on the stdio transport stdout belongs to the JSON-RPC
// stream.
package main

import (
	"fmt"
	"os"

	"docbase/internal/logging"
	"docbase/internal/mcp"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	mcp.Version = version
	logger := logging.NewAppLogger()

	rootCmd := NewRootCmd(version, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docbase:", err)
		os.Exit(1)
	}
}
