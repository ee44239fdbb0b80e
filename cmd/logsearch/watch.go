package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/logsearch/internal/indexer"
	"github.com/bull/logsearch/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current as log files change",
	Long: `Runs an update, then watches the configured roots and runs another
update after file activity settles. Updates never overlap.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before updating (default from config, 2s)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exitOnInterrupt(cancel)

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	builder := newBuilder(cfg, logger)
	out := cmd.OutOrStdout()

	result, err := builder.UpdateIndex(ctx)
	if err != nil {
		return fmt.Errorf("initial update: %w", err)
	}
	printReport(out, result)

	debounce := watchDebounce
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce.Duration
	}
	w := watch.New(builder, cfg.Roots, debounce, logger)
	w.OnUpdate = func(r *indexer.IndexResult, err error) {
		if err == nil && !r.NoOp {
			printReport(out, r)
		}
	}

	fmt.Fprintf(out, "\nWatching %d roots (Ctrl-C to stop)...\n", len(cfg.Roots))
	return w.Run(ctx)
}
