package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bull/logsearch/internal/schema"
)

// Search runs q and returns at most topK hits ordered by descending score,
// ties broken by ascending doc id.
func (ix *Index) Search(ctx context.Context, q Query, topK int) ([]Hit, error) {
	if q == nil {
		q = MatchAll{}
	}
	if topK <= 0 {
		return []Hit{}, nil
	}

	c := &compiler{schema: ix.schema}
	if err := q.compile(c); err != nil {
		return nil, err
	}

	fts := ix.schema.FTSTable()
	idCol := ix.schema.Fields()[0].Column

	var sb strings.Builder
	score := "1.0"
	if len(c.matches) > 0 {
		score = "-bm25(" + fts + ")"
	}
	fmt.Fprintf(&sb, "SELECT %s, %s AS score FROM %s AS d",
		strings.Join(ix.stmts.columns, ", "), score, ix.schema.Table())

	where := c.where
	args := c.args
	if len(c.matches) > 0 {
		fmt.Fprintf(&sb, " JOIN %s ON %s.rowid = d.%s", fts, fts, idCol)
		where = append([]string{fts + " MATCH ?"}, where...)
		args = append([]any{joinMatches(c.matches)}, args...)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY score DESC, d.%s ASC LIMIT ?", idCol)
	args = append(args, topK)

	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	fields := ix.schema.Fields()
	hits := make([]Hit, 0, min(topK, 256))
	for rows.Next() {
		var hit Hit
		var ts sql.NullInt64
		var id int64
		dest := make([]any, 0, len(fields)+1)
		for _, f := range fields {
			dest = append(dest, scanTarget(f, &hit.Doc, &id, &ts))
		}
		dest = append(dest, &hit.Score)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hit.Doc.DocID = uint64(id)
		if ts.Valid {
			t := time.UnixMicro(ts.Int64).UTC()
			hit.Doc.Timestamp = &t
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(err)
	}
	return hits, nil
}

func joinMatches(matches []string) string {
	if len(matches) == 1 {
		return matches[0]
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = "(" + m + ")"
	}
	return strings.Join(parts, " AND ")
}

func scanTarget(f schema.Field, d *schema.Document, id *int64, ts *sql.NullInt64) any {
	switch f.Name {
	case schema.FieldDocID:
		return id
	case schema.FieldTool:
		return &d.Tool
	case schema.FieldLogKind:
		return &d.LogKind
	case schema.FieldTimestamp:
		return ts
	case schema.FieldSeverity:
		return &d.Severity
	case schema.FieldCategory:
		return &d.Category
	case schema.FieldMessage:
		return &d.Message
	case schema.FieldFilePath:
		return &d.FilePath
	case schema.FieldProject:
		return &d.Project
	}
	return new(any)
}

func classifyQueryErr(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "fts5") || strings.Contains(msg, "regexp") {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return fmt.Errorf("search: %w", err)
}
