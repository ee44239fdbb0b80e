// Package main provides the logsearch CLI for indexing and searching local
// AI assistant logs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/logsearch/internal/config"
	"github.com/bull/logsearch/internal/discovery"
	"github.com/bull/logsearch/internal/indexer"
	"github.com/bull/logsearch/internal/parsers"
	"github.com/bull/logsearch/internal/schema"
)

var (
	configPath string
	indexDir   string
	roots      []string
)

var rootCmd = &cobra.Command{
	Use:   "logsearch",
	Short: "Index and search local AI assistant logs",
	Long: `logsearch builds a full-text index over the logs that AI coding
assistants (Claude Code, Cline, Cursor, Aider and others) leave on disk,
keeps it current incrementally, and answers filtered searches.

Configuration is read from ~/.config/logsearch/config.toml when present.

Environment variables:
  LOGSEARCH_INDEX_DIR         Index directory (default: ~/.local/share/logsearch/index)
  LOGSEARCH_ROOTS             Directories to scan, separated by the OS list separator
  LOGSEARCH_BATCH_SIZE        Documents per write batch (default: 10000)
  LOGSEARCH_MEMORY_BUDGET_MB  Index writer memory budget (default: 500)
  LOGSEARCH_LOG_LEVEL         debug, info, warn or error (default: info)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/logsearch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&indexDir, "index-dir", "", "index directory")
	rootCmd.PersistentFlags().StringSliceVar(&roots, "root", nil, "directory to scan for logs (repeatable)")
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if indexDir != "" {
		cfg.IndexDir = indexDir
	}
	if len(roots) > 0 {
		cfg.Roots = roots
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newBuilder(cfg *config.Config, logger *slog.Logger) *indexer.Builder {
	return indexer.NewBuilder(
		indexer.Config{
			IndexDir:       cfg.IndexDir,
			BatchSize:      cfg.BatchSize,
			MemoryBudgetMB: cfg.MemoryBudgetMB,
		},
		schema.New(),
		discovery.New(cfg.Roots, logger),
		parsers.Default(),
		logger,
	)
}
