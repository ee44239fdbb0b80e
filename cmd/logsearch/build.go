package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bull/logsearch/internal/indexer"
	"github.com/bull/logsearch/internal/metadata"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from every discovered log file",
	Long: `Discovers log files under the configured roots, parses each one and
writes a fresh index. Documents from any previous build are replaced in the
same commit, so readers see either the old index or the new one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd, true)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Reindex only log files that changed since the last run",
	Long: `Compares each discovered file's content fingerprint with the one
recorded at the last run, reindexes changed and new files, and retracts
files that disappeared. Runs a full build when no usable metadata exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd, updateCmd)
}

func runIndex(cmd *cobra.Command, full bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	builder := newBuilder(cfg, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index: %s\n", cfg.IndexDir)

	var result *indexer.IndexResult
	if full {
		fmt.Fprintln(out, "Building index...")
		result, err = builder.BuildInitialIndex(ctx)
	} else {
		fmt.Fprintln(out, "Updating index...")
		result, err = builder.UpdateIndex(ctx)
	}
	if errors.Is(err, metadata.ErrMetadataCorrupt) {
		return fmt.Errorf("%w\nrun `logsearch build` to rebuild the index", err)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printReport(out, result)
	return nil
}

func printReport(out io.Writer, r *indexer.IndexResult) {
	fmt.Fprintln(out)
	switch {
	case r.NoOp:
		fmt.Fprintln(out, "Index is up to date.")
	case r.FullBuild:
		fmt.Fprintln(out, "Build complete!")
	default:
		fmt.Fprintln(out, "Update complete!")
	}

	if !r.NoOp {
		fmt.Fprintf(out, "  Indexed: %s documents from %d files\n",
			humanize.Comma(int64(r.DocsIndexed)), r.FilesIndexed)
		if r.FilesRemoved > 0 {
			fmt.Fprintf(out, "  Removed: %d files no longer present\n", r.FilesRemoved)
		}
	}
	fmt.Fprintf(out, "  Total:   %s documents, %d files, %s of logs\n",
		humanize.Comma(int64(r.TotalDocs)), r.TotalFiles, humanize.IBytes(r.TotalBytes))
	fmt.Fprintf(out, "  Index:   %s on disk\n", humanize.IBytes(r.IndexSizeBytes))
	fmt.Fprintf(out, "  Time:    %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Skipped) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Skipped %d files:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(out, "  - %s: %s\n", s.Path, s.Reason)
		}
	}
}

// exitOnInterrupt is used by long-running commands that should stop
// promptly on a second signal.
func exitOnInterrupt(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sig
		cancel()
		<-sig
		os.Exit(130)
	}()
}
