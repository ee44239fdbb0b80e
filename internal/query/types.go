// Package query compiles structured search requests into index queries and
// maps the hits back into typed results.
package query

import (
	"fmt"
	"strings"
	"time"
)

const DefaultLimit = 100

// Format selects a result renderer.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts table, json, markdown or md, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or markdown)", s)
}

// SearchQuery is a structured search request. Empty string filters are
// ignored; populated ones must all match.
type SearchQuery struct {
	Text     string     `json:"text"`
	Regex    bool       `json:"regex,omitempty"` // Text is a pattern, not words
	Tool     string     `json:"tool,omitempty"`
	LogKind  string     `json:"log_kind,omitempty"`
	Category string     `json:"category,omitempty"`
	Severity string     `json:"severity,omitempty"`
	Project  string     `json:"project,omitempty"`
	FilePath string     `json:"file_path,omitempty"`
	From     *time.Time `json:"from,omitempty"` // inclusive
	To       *time.Time `json:"to,omitempty"`   // inclusive
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Format   Format     `json:"format,omitempty"`
}

// NewSearchQuery returns a query with default paging and format.
func NewSearchQuery(text string) SearchQuery {
	return SearchQuery{Text: text, Limit: DefaultLimit, Format: FormatTable}
}

// SearchResult is one ranked document.
type SearchResult struct {
	DocID     uint64  `json:"doc_id"`
	Tool      string  `json:"tool"`
	LogKind   string  `json:"log_kind"`
	Timestamp string  `json:"timestamp,omitempty"` // RFC3339, UTC
	Severity  string  `json:"severity"`
	Category  string  `json:"category"`
	Message   string  `json:"message"`
	FilePath  string  `json:"file_path"`
	Project   string  `json:"project"`
	Score     float64 `json:"score"`
}

// SearchResults is one page of results.
type SearchResults struct {
	Query        string         `json:"query"`
	TotalFound   int            `json:"total_found"` // results on this page
	Showing      int            `json:"showing"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
	Results      []SearchResult `json:"results"`
	SearchTimeMs int64          `json:"search_time_ms"`
}

// HasMore reports whether a full page came back, so a next page may exist.
func (r *SearchResults) HasMore() bool {
	return r.Limit > 0 && r.Showing == r.Limit
}
