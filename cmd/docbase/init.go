package main

import (
	"fmt"

	"docbase/internal/config"
	"docbase/internal/logging"
	"docbase/pkg/fileops"

	"github.com/spf13/cobra"
)

func NewInitCmd(logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the initial configuration and storage layout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, logger)
		},
	}

	cmd.Flags().String("storage-dir", "", "Storage directory for documents (default: XDG data dir)")
	return cmd
}

func runInit(cmd *cobra.Command, logger *logging.AppLogger) error {
	if !config.IsFirstRun() {
		path, _ := config.FindConfigFile()
		return fmt.Errorf("already initialized: %s", path)
	}

	cfg := config.DefaultConfig()
	if dir, _ := cmd.Flags().GetString("storage-dir"); dir != "" {
		cfg.StorageDir = fileops.ExpandPath(dir)
	}

	if err := fileops.ValidateDirectoryWritable(cfg.StorageDir); err != nil {
		return fmt.Errorf("storage directory not usable: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	path, _ := config.FindConfigFile()
	logger.Info("Initialized", "config", path, "storage_dir", cfg.StorageDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized docbase\n  config:  %s\n  storage: %s\n", path, cfg.StorageDir)
	return nil
}
