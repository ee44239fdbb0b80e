package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bull/logsearch/internal/indexer"
	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size, age and contents",
	RunE:  runStatus,
}

var locationsTool string

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List indexed log files",
	RunE:  runLocations,
}

func init() {
	locationsCmd.Flags().StringVar(&locationsTool, "tool", "", "only files of this tool")
	rootCmd.AddCommand(statusCmd, locationsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	st, err := indexer.ReadStatus(context.Background(), cfg.IndexDir, schema.New())
	if errors.Is(err, storage.ErrIndexNotFound) {
		fmt.Fprintf(out, "No index in %s. Run `logsearch build` to create one.\n", cfg.IndexDir)
		return nil
	}
	if err != nil {
		return err
	}

	printStatus(out, st)
	return nil
}

func printStatus(out io.Writer, st *indexer.Status) {
	fmt.Fprintf(out, "Index:     %s\n", st.IndexDir)
	fmt.Fprintf(out, "ID:        %s (schema %s)\n", st.IndexID, st.SchemaVersion)
	fmt.Fprintf(out, "Documents: %s\n", humanize.Comma(int64(st.DocCount)))
	fmt.Fprintf(out, "Files:     %d (%s of logs)\n", st.Locations, humanize.IBytes(st.SourceBytes))
	fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(st.IndexSizeBytes))
	if st.LastIndexed.IsZero() {
		fmt.Fprintln(out, "Indexed:   never")
	} else {
		fmt.Fprintf(out, "Indexed:   %s (%s)\n", humanize.Time(st.LastIndexed), st.LastIndexed.Local().Format("2006-01-02 15:04"))
	}
	if !st.Consistent {
		fmt.Fprintln(out, "Warning:   metadata does not match the index; run `logsearch update`")
	}

	if len(st.Tools) == 0 {
		return
	}
	fmt.Fprintln(out)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Tool", "Files")
	for _, tool := range slices.Sorted(maps.Keys(st.Tools)) {
		t.Row(tool, fmt.Sprint(st.Tools[tool]))
	}
	fmt.Fprintln(out, t.Render())
}

func runLocations(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	locs, err := indexer.ListLocations(cfg.IndexDir, locationsTool)
	if errors.Is(err, metadata.ErrNotFound) {
		fmt.Fprintf(out, "No index in %s. Run `logsearch build` to create one.\n", cfg.IndexDir)
		return nil
	}
	if err != nil {
		return err
	}

	if len(locs) == 0 {
		fmt.Fprintln(out, "No indexed files.")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Path", "Docs", "Size", "Modified")
	for _, loc := range locs {
		t.Row(loc.Path,
			humanize.Comma(int64(loc.DocCount)),
			humanize.IBytes(loc.SizeBytes),
			humanize.Time(loc.LastModified))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
