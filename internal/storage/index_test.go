package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/logsearch/internal/schema"
)

// setupTestIndex opens a writable index in a temp dir.
func setupTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	ix, err := Open(context.Background(), dir, schema.New(), Options{})
	require.NoError(t, err, "Failed to open index")
	t.Cleanup(func() { ix.Close() })
	return ix, dir
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func sampleDocs() []schema.Document {
	return []schema.Document{
		{DocID: 0, Tool: "Cursor", LogKind: "Session", Timestamp: ts("2026-01-10T09:00:00Z"),
			Severity: "Error", Category: "ToolUse", Message: "build failed: syntax error",
			FilePath: "/logs/cursor/a.log", Project: "shop"},
		{DocID: 1, Tool: "Cursor", LogKind: "Session", Timestamp: ts("2026-01-11T09:00:00Z"),
			Severity: "Info", Category: "SystemEvent", Message: "build started",
			FilePath: "/logs/cursor/a.log", Project: "shop"},
		{DocID: 2, Tool: "Claude Code", LogKind: "History",
			Severity: "Error", Category: "Error", Message: "permission denied writing config",
			FilePath: "/logs/claude/history.jsonl", Project: "claude"},
		{DocID: 3, Tool: "Claude Code", LogKind: "History", Timestamp: ts("2026-02-01T12:30:00Z"),
			Severity: "Info", Category: "UserPrompt", Message: "please fix the failing build",
			FilePath: "/logs/claude/history.jsonl", Project: "claude"},
	}
}

func seed(t *testing.T, ix *Index, docs []schema.Document) {
	t.Helper()
	ctx := context.Background()
	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.AddBatch(ctx, docs))
	require.NoError(t, w.Commit(ctx, w.NextDocID()))
}

func docIDs(hits []Hit) []uint64 {
	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.Doc.DocID
	}
	return ids
}

func TestOpen_CreatesSchema(t *testing.T) {
	ix, dir := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Health(ctx))

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, stats.IndexID)
	assert.Equal(t, schema.Version, stats.SchemaVersion)
	assert.Zero(t, stats.DocCount)
	assert.Positive(t, stats.SizeBytes)

	// Reopening keeps the identity.
	id := stats.IndexID
	require.NoError(t, ix.Close())
	again, err := Open(ctx, dir, schema.New(), Options{})
	require.NoError(t, err)
	defer again.Close()
	gotID, err := again.IndexID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
}

func TestOpenReader_Missing(t *testing.T) {
	_, err := OpenReader(context.Background(), t.TempDir(), schema.New())
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestCommitVisibility(t *testing.T) {
	ix, dir := setupTestIndex(t)
	ctx := context.Background()
	seed(t, ix, sampleDocs()[:1])

	reader, err := OpenReader(ctx, dir, schema.New())
	require.NoError(t, err)
	defer reader.Close()

	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.AddBatch(ctx, sampleDocs()[1:]))

	hits, err := reader.Search(ctx, MatchAll{}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "pending documents are invisible before commit")

	require.NoError(t, w.Commit(ctx, w.NextDocID()))

	hits, err = reader.Search(ctx, MatchAll{}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestRollbackDiscards(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()

	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.AddBatch(ctx, sampleDocs()))
	require.NoError(t, w.Rollback())
	assert.ErrorIs(t, w.AddBatch(ctx, sampleDocs()), ErrWriterClosed)

	n, err := ix.DocCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteByPath(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()
	seed(t, ix, sampleDocs())

	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	n, err := w.DeleteByPath(ctx, "/logs/cursor/a.log")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = w.DeleteByPath(ctx, "/logs/CURSOR/a.log")
	require.NoError(t, err)
	assert.Zero(t, n, "path match is exact")
	require.NoError(t, w.Commit(ctx, w.NextDocID()))

	hits, err := ix.Search(ctx, Text{Field: schema.FieldMessage, Expr: `"build"`}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, docIDs(hits), "deleted rows leave the full-text index too")
}

func TestNextDocIDNeverReused(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()
	seed(t, ix, sampleDocs())

	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), w.NextDocID())
	_, err = w.DeleteAll(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx, w.NextDocID()))

	w, err = ix.BeginWrite(ctx)
	require.NoError(t, err)
	defer w.Rollback()
	assert.Equal(t, uint64(4), w.NextDocID(), "high-water mark survives deleting every document")
}

func TestSearch(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()
	seed(t, ix, sampleDocs())

	build, err := NewText(schema.FieldMessage, "build")
	require.NoError(t, err)
	failRe, err := NewRegex(schema.FieldMessage, `fail(ed|ing)`)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query Query
		want  []uint64
	}{
		{"match all", MatchAll{}, []uint64{0, 1, 2, 3}},
		{"term", Term{Field: schema.FieldSeverity, Value: "Error"}, []uint64{0, 2}},
		{"term folds case", Term{Field: schema.FieldTool, Value: "cursor"}, []uint64{0, 1}},
		{"path term", Term{Field: schema.FieldFilePath, Value: "/logs/claude/history.jsonl"}, []uint64{2, 3}},
		{"regex", failRe, []uint64{0, 3}},
		{"range", TimeRange{Field: schema.FieldTimestamp, From: ts("2026-01-11T00:00:00Z"), To: ts("2026-02-01T12:30:00Z")}, []uint64{1, 3}},
		{"open range skips undated", TimeRange{Field: schema.FieldTimestamp}, []uint64{0, 1, 3}},
		{"boolean", Boolean{Must: []Query{build, Term{Field: schema.FieldSeverity, Value: "Error"}}}, []uint64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := ix.Search(ctx, tt.query, 100)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, docIDs(hits))
		})
	}
}

func TestSearch_TextScoring(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()
	seed(t, ix, sampleDocs())

	q, err := NewText(schema.FieldMessage, "build")
	require.NoError(t, err)
	hits, err := ix.Search(ctx, q, 100)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "ordered by descending score")
	}

	all, err := ix.Search(ctx, MatchAll{}, 100)
	require.NoError(t, err)
	for _, h := range all {
		assert.Equal(t, 1.0, h.Score)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3}, docIDs(all), "ties ordered by doc id")

	limited, err := ix.Search(ctx, MatchAll{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, docIDs(limited))
}

func TestSearch_RoundTripsFields(t *testing.T) {
	ix, _ := setupTestIndex(t)
	ctx := context.Background()
	docs := sampleDocs()
	seed(t, ix, docs)

	hits, err := ix.Search(ctx, Term{Field: schema.FieldProject, Value: "shop"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	got := hits[0].Doc
	assert.Equal(t, docs[0].Message, got.Message)
	assert.Equal(t, docs[0].FilePath, got.FilePath)
	assert.Equal(t, docs[0].LogKind, got.LogKind)
	require.NotNil(t, got.Timestamp)
	assert.True(t, docs[0].Timestamp.Equal(*got.Timestamp))
}

func TestNewText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"build", `"build"`},
		{"build failed: syntax", `"build" "failed:" "syntax"`},
		{`"syntax error" parser`, `"syntax error" "parser"`},
		{"depend*", `"depend"*`},
		{"cursor OR cline", `"cursor" OR "cline"`},
		{"build NOT started", `"build" NOT "started"`},
		{"build - :: started", `"build" "started"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, err := NewText(schema.FieldMessage, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Expr)
		})
	}
}

func TestNewText_Errors(t *testing.T) {
	for _, in := range []string{`"unterminated`, "OR build", "build AND", "build OR NOT x", "::", ""} {
		t.Run(in, func(t *testing.T) {
			_, err := NewText(schema.FieldMessage, in)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestNewRegex_Invalid(t *testing.T) {
	_, err := NewRegex(schema.FieldMessage, "(unclosed")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch_FieldKindChecked(t *testing.T) {
	ix, _ := setupTestIndex(t)
	_, err := ix.Search(context.Background(), Term{Field: schema.FieldTimestamp, Value: "x"}, 10)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = ix.Search(context.Background(), Term{Field: "nope", Value: "x"}, 10)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
