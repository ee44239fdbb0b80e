package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

// Searcher is the read side of an index.
type Searcher interface {
	Search(ctx context.Context, q storage.Query, topK int) ([]storage.Hit, error)
}

// Executor runs searches against a read-only index handle. It never writes
// to the index or its metadata.
type Executor struct {
	searcher Searcher
	closer   func() error
	logger   *slog.Logger
}

// NewExecutor opens the index in indexDir read-only.
func NewExecutor(ctx context.Context, indexDir string, sch *schema.Schema, logger *slog.Logger) (*Executor, error) {
	ix, err := storage.OpenReader(ctx, indexDir, sch)
	if err != nil {
		return nil, err
	}
	exec := NewExecutorFor(ix, logger)
	exec.closer = ix.Close
	return exec, nil
}

// NewExecutorFor wraps an already open searcher. The caller keeps ownership.
func NewExecutorFor(s Searcher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{searcher: s, logger: logger}
}

// Close releases the index handle opened by NewExecutor.
func (e *Executor) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// Execute runs q and returns the requested page. limit+offset hits are
// retrieved and the first offset dropped. Malformed text, patterns or date
// bounds fail with ErrQuerySyntax.
func (e *Executor) Execute(ctx context.Context, q SearchQuery) (*SearchResults, error) {
	start := time.Now()

	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	compiled, err := BuildQuery(q)
	if err != nil {
		return nil, err
	}

	topK := q.Limit + q.Offset
	if topK < q.Limit {
		topK = math.MaxInt
	}
	hits, err := e.searcher.Search(ctx, compiled, topK)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidQuery) {
			return nil, fmt.Errorf("%w: %w", ErrQuerySyntax, err)
		}
		return nil, fmt.Errorf("search: %w", err)
	}

	if q.Offset >= len(hits) {
		hits = nil
	} else {
		hits = hits[q.Offset:]
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = toResult(h)
	}

	elapsed := time.Since(start)
	e.logger.Debug("Search executed",
		"query", q.Text, "regex", q.Regex, "results", len(results), "duration", elapsed)

	return &SearchResults{
		Query:        q.Text,
		TotalFound:   len(results),
		Showing:      len(results),
		Offset:       q.Offset,
		Limit:        q.Limit,
		Results:      results,
		SearchTimeMs: elapsed.Milliseconds(),
	}, nil
}

// BuildQuery compiles q into an index query: one exact-match clause per
// populated filter, one text or regex clause, one time range. No clauses
// means match-all; a single clause is used as is; otherwise all must match.
func BuildQuery(q SearchQuery) (storage.Query, error) {
	var clauses []storage.Query

	filters := []struct {
		field string
		value string
	}{
		{schema.FieldTool, q.Tool},
		{schema.FieldLogKind, q.LogKind},
		{schema.FieldCategory, q.Category},
		{schema.FieldSeverity, q.Severity},
		{schema.FieldProject, q.Project},
		{schema.FieldFilePath, q.FilePath},
	}
	for _, f := range filters {
		if v := strings.TrimSpace(f.value); v != "" {
			clauses = append(clauses, storage.Term{Field: f.field, Value: v})
		}
	}

	if text := strings.TrimSpace(q.Text); text != "" {
		var clause storage.Query
		var err error
		if q.Regex {
			clause, err = storage.NewRegex(schema.FieldMessage, q.Text)
		} else {
			clause, err = storage.NewText(schema.FieldMessage, text)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQuerySyntax, err)
		}
		clauses = append(clauses, clause)
	}

	if q.From != nil || q.To != nil {
		if q.From != nil && q.To != nil && q.From.After(*q.To) {
			return nil, fmt.Errorf("%w: from %s is after to %s",
				ErrQuerySyntax, q.From.Format(time.RFC3339), q.To.Format(time.RFC3339))
		}
		clauses = append(clauses, storage.TimeRange{Field: schema.FieldTimestamp, From: q.From, To: q.To})
	}

	switch len(clauses) {
	case 0:
		return storage.MatchAll{}, nil
	case 1:
		return clauses[0], nil
	default:
		return storage.Boolean{Must: clauses}, nil
	}
}

func toResult(h storage.Hit) SearchResult {
	r := SearchResult{
		DocID:    h.Doc.DocID,
		Tool:     h.Doc.Tool,
		LogKind:  h.Doc.LogKind,
		Severity: h.Doc.Severity,
		Category: h.Doc.Category,
		Message:  h.Doc.Message,
		FilePath: h.Doc.FilePath,
		Project:  h.Doc.Project,
		Score:    h.Score,
	}
	if h.Doc.Timestamp != nil {
		r.Timestamp = h.Doc.Timestamp.UTC().Format(time.RFC3339)
	}
	return r
}
