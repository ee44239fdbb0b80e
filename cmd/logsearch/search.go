package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bull/logsearch/internal/format"
	"github.com/bull/logsearch/internal/query"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

var searchOpts struct {
	regex    bool
	tool     string
	kind     string
	category string
	severity string
	project  string
	file     string
	from     string
	to       string
	limit    int
	offset   int
	format   string
	plain    bool
}

var searchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Search indexed logs",
	Long: `Searches the index. Words are ANDed; "quoted phrases", prefix* terms and
AND/OR/NOT are supported. With --regex the text is a regular expression
matched against messages. Filters match case-insensitively, except --file.

Dates for --from and --to take YYYY-MM-DD, RFC3339, or an age such as 7d,
2w, 3m (months of 30 days) or 1y.`,
	Example: `  logsearch search "rate limit" --tool "Claude Code" --from 7d
  logsearch search --severity error --project web --format json
  logsearch search --regex 'timeout after \d+s' --limit 20`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.BoolVar(&searchOpts.regex, "regex", false, "treat text as a regular expression")
	f.StringVar(&searchOpts.tool, "tool", "", "only this tool")
	f.StringVar(&searchOpts.kind, "kind", "", "only this log kind (History, Session, Debug, ...)")
	f.StringVar(&searchOpts.category, "category", "", "only this category (UserPrompt, AssistantResponse, ToolUse, SystemEvent, Error)")
	f.StringVar(&searchOpts.severity, "severity", "", "only this severity (Debug, Info, Warn, Error)")
	f.StringVar(&searchOpts.project, "project", "", "only this project")
	f.StringVar(&searchOpts.file, "file", "", "only this exact file path")
	f.StringVar(&searchOpts.from, "from", "", "earliest timestamp")
	f.StringVar(&searchOpts.to, "to", "", "latest timestamp")
	f.IntVar(&searchOpts.limit, "limit", 0, "maximum results (default from config, 100)")
	f.IntVar(&searchOpts.offset, "offset", 0, "results to skip")
	f.StringVar(&searchOpts.format, "format", "", "output format: table, json or markdown")
	f.BoolVar(&searchOpts.plain, "plain", false, "print markdown without terminal styling")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	formatName := searchOpts.format
	if formatName == "" {
		formatName = cfg.Search.Format
	}
	outFormat, err := query.ParseFormat(formatName)
	if err != nil {
		return err
	}

	from, to, err := query.ParseRange(searchOpts.from, searchOpts.to, time.Now())
	if err != nil {
		return err
	}

	limit := searchOpts.limit
	if limit <= 0 {
		limit = cfg.Search.Limit
	}

	q := query.SearchQuery{
		Text:     strings.Join(args, " "),
		Regex:    searchOpts.regex,
		Tool:     searchOpts.tool,
		LogKind:  searchOpts.kind,
		Category: searchOpts.category,
		Severity: searchOpts.severity,
		Project:  searchOpts.project,
		FilePath: searchOpts.file,
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   searchOpts.offset,
		Format:   outFormat,
	}

	exec, err := query.NewExecutor(ctx, cfg.IndexDir, schema.New(), logger)
	if errors.Is(err, storage.ErrIndexNotFound) {
		return fmt.Errorf("no index in %s; run `logsearch build` first", cfg.IndexDir)
	}
	if err != nil {
		return err
	}
	defer exec.Close()

	results, err := exec.Execute(ctx, q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rendered, err := format.Render(results, outFormat)
	if err != nil {
		return err
	}
	if outFormat == query.FormatMarkdown && !searchOpts.plain && isTerminal(out) {
		rendered = prettyMarkdown(rendered)
	}
	fmt.Fprint(out, rendered)

	if outFormat != query.FormatJSON && results.HasMore() {
		fmt.Fprintf(out, "\nNext page: --offset %d --limit %d\n", results.Offset+results.Showing, results.Limit)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// prettyMarkdown styles markdown for the terminal, falling back to the
// raw text if rendering fails.
func prettyMarkdown(md string) string {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w - 2
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	styled, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return styled
}
