package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/bull/logsearch/internal/schema"
)

// Writer is an open write transaction. Nothing it adds or deletes is
// visible to readers until Commit succeeds.
type Writer struct {
	ix     *Index
	tx     *sql.Tx
	nextID uint64
	done   bool
}

// BeginWrite starts the single write transaction for a build or update.
func (ix *Index) BeginWrite(ctx context.Context) (*Writer, error) {
	if ix.readOnly {
		return nil, fmt.Errorf("%w: index opened read-only", ErrIndexOpen)
	}
	tx, err := ix.beginWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}

	next, err := seedDocID(ctx, tx, ix.schema)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}
	return &Writer{ix: ix, tx: tx, nextID: next}, nil
}

// seedDocID returns the first id a new document may take: past the stored
// high-water mark, past every existing id, and at least the document count.
func seedDocID(ctx context.Context, tx *sql.Tx, s *schema.Schema) (uint64, error) {
	idCol := s.Fields()[0].Column

	var maxID, count int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(%s), -1), COUNT(*) FROM %s", idCol, s.Table()),
	).Scan(&maxID, &count)
	if err != nil {
		return 0, fmt.Errorf("read doc id range: %w", err)
	}

	var stored string
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM index_info WHERE key = ?`, infoNextDocID,
	).Scan(&stored); err != nil {
		return 0, fmt.Errorf("read next doc id: %w", err)
	}
	highWater, err := strconv.ParseUint(stored, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse next doc id %q: %w", stored, err)
	}

	next := uint64(maxID + 1)
	if uint64(count) > next {
		next = uint64(count)
	}
	if highWater > next {
		next = highWater
	}
	return next, nil
}

// NextDocID returns the first document id not yet used by the index or by
// this writer.
func (w *Writer) NextDocID() uint64 { return w.nextID }

// AddBatch inserts docs into the pending transaction.
func (w *Writer) AddBatch(ctx context.Context, docs []schema.Document) error {
	if w.done {
		return ErrWriterClosed
	}
	if len(docs) == 0 {
		return nil
	}

	stmt, err := w.tx.PrepareContext(ctx, w.ix.stmts.insert)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", ErrIndexWrite, err)
	}
	defer stmt.Close()

	fields := w.ix.schema.Fields()
	args := make([]any, len(fields))
	for i := range docs {
		for j, f := range fields {
			args[j] = fieldValue(f, &docs[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("%w: insert doc %d: %w", ErrIndexWrite, docs[i].DocID, err)
		}
		if docs[i].DocID >= w.nextID {
			w.nextID = docs[i].DocID + 1
		}
	}
	return nil
}

// DeleteByPath removes every document whose file_path equals path exactly.
func (w *Writer) DeleteByPath(ctx context.Context, path string) (int64, error) {
	if w.done {
		return 0, ErrWriterClosed
	}
	f, _ := w.ix.schema.Field(schema.FieldFilePath)
	res, err := w.tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", w.ix.schema.Table(), f.Column), path)
	if err != nil {
		return 0, fmt.Errorf("%w: delete %s: %w", ErrIndexWrite, path, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteAll removes every document. The doc id high-water mark is kept.
func (w *Writer) DeleteAll(ctx context.Context) (int64, error) {
	if w.done {
		return 0, ErrWriterClosed
	}
	res, err := w.tx.ExecContext(ctx, "DELETE FROM "+w.ix.schema.Table())
	if err != nil {
		return 0, fmt.Errorf("%w: clear documents: %w", ErrIndexWrite, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Commit records the doc id high-water mark and makes all pending changes
// visible at once. next must be past every id handed out by the caller.
func (w *Writer) Commit(ctx context.Context, next uint64) error {
	if w.done {
		return ErrWriterClosed
	}
	w.done = true

	if next < w.nextID {
		next = w.nextID
	}
	if _, err := w.tx.ExecContext(ctx,
		`UPDATE index_info SET value = ? WHERE key = ?`, strconv.FormatUint(next, 10), infoNextDocID,
	); err != nil {
		w.tx.Rollback()
		return fmt.Errorf("%w: store next doc id: %w", ErrIndexWrite, err)
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrIndexWrite, err)
	}
	return nil
}

// Rollback discards pending changes. It is a no-op after Commit.
func (w *Writer) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback()
}

func fieldValue(f schema.Field, d *schema.Document) any {
	switch f.Name {
	case schema.FieldDocID:
		return int64(d.DocID)
	case schema.FieldTool:
		return d.Tool
	case schema.FieldLogKind:
		return d.LogKind
	case schema.FieldTimestamp:
		if d.Timestamp == nil {
			return nil
		}
		return d.Timestamp.UnixMicro()
	case schema.FieldSeverity:
		return d.Severity
	case schema.FieldCategory:
		return d.Category
	case schema.FieldMessage:
		return d.Message
	case schema.FieldFilePath:
		return d.FilePath
	case schema.FieldProject:
		return d.Project
	}
	return nil
}
