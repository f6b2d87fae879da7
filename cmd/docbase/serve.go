package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"docbase/internal/config"
	"docbase/internal/logging"
	"docbase/internal/mcp"

	"github.com/spf13/cobra"
)

func NewServeCmd(logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over stdio (the default, for editor and agent
clients) or over streamable HTTP when --http is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, logger)
		},
	}

	cmd.Flags().String("http", "", "Listen address for the HTTP transport (e.g. :8080); empty means stdio")
	cmd.Flags().String("storage-dir", "", "Override the configured storage directory")
	cmd.Flags().Bool("lazy-index", false, "Defer the search index build until the first search")
	return cmd
}

func runServe(cmd *cobra.Command, logger *logging.AppLogger) error {
	cfg, err := loadServeConfig(cmd, logger)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

// loadServeConfig merges the on-disk config with the serve flags. A missing
// config file is not fatal: stdio clients spawn the binary directly, so serve
// falls back to defaults instead of demanding an init step first.
func loadServeConfig(cmd *cobra.Command, logger *logging.AppLogger) (*config.Config, error) {
	var cfg *config.Config
	if config.IsFirstRun() {
		logger.Debug("No config file found, using defaults")
		def := config.DefaultConfig()
		cfg = &def
	} else {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	applyServeFlags(cmd, cfg)
	return cfg, nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if addr, _ := cmd.Flags().GetString("http"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if dir, _ := cmd.Flags().GetString("storage-dir"); dir != "" {
		cfg.StorageDir = dir
	}
	if cmd.Flags().Changed("lazy-index") {
		lazy, _ := cmd.Flags().GetBool("lazy-index")
		cfg.LazyIndex = lazy
	}
}
