// Package format renders search results. Renderers are pure functions of
// their input.
package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/bull/logsearch/internal/query"
)

// MessageWidth is the display width of the message column in tables.
const MessageWidth = 60

// Render dispatches on f.
func Render(r *query.SearchResults, f query.Format) (string, error) {
	switch f {
	case query.FormatTable, "":
		return Table(r), nil
	case query.FormatJSON:
		return JSON(r)
	case query.FormatMarkdown:
		return Markdown(r), nil
	}
	return "", fmt.Errorf("unknown format %q", f)
}

// Table renders one row per result: tool, date, severity, category and a
// single-line message truncated to MessageWidth columns.
func Table(r *query.SearchResults) string {
	if len(r.Results) == 0 {
		return "No results found.\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Tool", "Date", "Severity", "Category", "Message").
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for i, res := range r.Results {
		t.Row(
			fmt.Sprintf("%d", r.Offset+i+1),
			res.Tool,
			shortDate(res.Timestamp),
			res.Severity,
			res.Category,
			truncate(oneLine(res.Message), MessageWidth),
		)
	}
	return t.Render() + "\n"
}

// JSON renders the results verbatim, indented.
func JSON(r *query.SearchResults) (string, error) {
	out := *r
	if out.Results == nil {
		out.Results = []query.SearchResult{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(data) + "\n", nil
}

// Markdown renders a narrative report with one section per result.
func Markdown(r *query.SearchResults) string {
	var b strings.Builder

	b.WriteString("# Search Results\n\n")
	if r.Query != "" {
		fmt.Fprintf(&b, "**Query:** `%s`\n\n", r.Query)
	}
	fmt.Fprintf(&b, "Found %d results in %dms", r.TotalFound, r.SearchTimeMs)
	if r.Offset > 0 {
		fmt.Fprintf(&b, " (offset %d)", r.Offset)
	}
	b.WriteString("\n")

	for i, res := range r.Results {
		fmt.Fprintf(&b, "\n## Result %d\n\n", r.Offset+i+1)
		fmt.Fprintf(&b, "- **Tool:** %s\n", res.Tool)
		fmt.Fprintf(&b, "- **Kind:** %s\n", res.LogKind)
		if res.Timestamp != "" {
			fmt.Fprintf(&b, "- **Time:** %s\n", res.Timestamp)
		}
		fmt.Fprintf(&b, "- **Severity:** %s\n", res.Severity)
		fmt.Fprintf(&b, "- **Category:** %s\n", res.Category)
		fmt.Fprintf(&b, "- **Project:** %s\n", res.Project)
		fmt.Fprintf(&b, "- **File:** `%s`\n", res.FilePath)
		fmt.Fprintf(&b, "- **Score:** %.2f\n", res.Score)
		fence := fenceFor(res.Message)
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", fence, res.Message, fence)
	}
	return b.String()
}

// shortDate trims an RFC3339 timestamp to minutes; "-" when absent.
func shortDate(ts string) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

// fenceFor returns a backtick fence longer than any run inside s.
func fenceFor(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
