package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/query"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

// seedIndex writes docs and matching metadata into a fresh index dir.
func seedIndex(t *testing.T) *Config {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	sch := schema.New()

	claudePath := "/home/dev/.claude/projects/web/s.jsonl"
	cursorPath := "/home/dev/.cursor/logs/main.log"
	docs := []schema.Document{
		{DocID: 0, Tool: "Claude Code", LogKind: "Session", Severity: "Info", Category: "UserPrompt",
			Message: "why is the deploy failing", FilePath: claudePath, Project: "web",
			Timestamp: ts("2026-04-01T09:00:00Z")},
		{DocID: 1, Tool: "Claude Code", LogKind: "Session", Severity: "Error", Category: "Error",
			Message: "deploy failed: permission denied", FilePath: claudePath, Project: "web",
			Timestamp: ts("2026-04-01T09:01:00Z")},
		{DocID: 2, Tool: "Cursor", LogKind: "Unknown", Severity: "Info", Category: "Unknown",
			Message: "extension host started", FilePath: cursorPath, Project: "logs"},
	}

	ix, err := storage.Open(ctx, dir, sch, storage.Options{})
	require.NoError(t, err)
	id, err := ix.IndexID(ctx)
	require.NoError(t, err)
	w, err := ix.BeginWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.AddBatch(ctx, docs))
	require.NoError(t, w.Commit(ctx, w.NextDocID()))
	require.NoError(t, ix.Close())

	meta := metadata.New(sch.Version(), id)
	meta.Upsert(metadata.LocationMetadata{Path: claudePath, ContentFingerprint: "a", SizeBytes: 100, DocCount: 2})
	meta.Upsert(metadata.LocationMetadata{Path: cursorPath, ContentFingerprint: "b", SizeBytes: 50, DocCount: 1})
	meta.LastIndexed = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, metadata.Save(metadata.PathFor(dir), meta))

	return &Config{IndexDir: dir, Schema: sch}
}

func TestSearchHandler(t *testing.T) {
	cfg := seedIndex(t)
	search := makeSearchHandler(cfg)
	ctx := context.Background()

	_, out, err := search(ctx, nil, SearchLogsInput{Query: "deploy"})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.False(t, out.HasMore)
	assert.Empty(t, out.Message)

	_, out, err = search(ctx, nil, SearchLogsInput{Query: "deploy", Severity: "error"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, uint64(1), out.Results[0].DocID)
	assert.Equal(t, "2026-04-01T09:01:00Z", out.Results[0].Timestamp)

	_, out, err = search(ctx, nil, SearchLogsInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
	assert.True(t, out.HasMore)
	assert.Equal(t, 2, out.NextOffset)

	_, out, err = search(ctx, nil, SearchLogsInput{From: "2026-04-01", To: "2026-04-01"})
	require.NoError(t, err)
	assert.Len(t, out.Results, 2, "undated entry excluded from range")

	_, out, err = search(ctx, nil, SearchLogsInput{Query: "kubernetes"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestSearchHandlerErrors(t *testing.T) {
	cfg := seedIndex(t)
	search := makeSearchHandler(cfg)
	ctx := context.Background()

	_, _, err := search(ctx, nil, SearchLogsInput{Query: `"unbalanced`})
	assert.ErrorIs(t, err, query.ErrQuerySyntax)

	_, _, err = search(ctx, nil, SearchLogsInput{Query: "([", Regex: true})
	assert.ErrorIs(t, err, query.ErrQuerySyntax)

	_, _, err = search(ctx, nil, SearchLogsInput{From: "last tuesday"})
	assert.ErrorIs(t, err, query.ErrInvalidDate)
}

func TestSearchHandlerMissingIndex(t *testing.T) {
	cfg := &Config{IndexDir: t.TempDir(), Schema: schema.New()}
	_, out, err := makeSearchHandler(cfg)(context.Background(), nil, SearchLogsInput{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.Equal(t, noIndexMessage, out.Message)
}

func TestStatusHandler(t *testing.T) {
	cfg := seedIndex(t)
	_, out, err := makeStatusHandler(cfg)(context.Background(), nil, StatusInput{})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), out.TotalDocs)
	assert.Equal(t, 2, out.Locations)
	assert.Equal(t, uint64(150), out.SourceBytes)
	assert.Equal(t, "2026-04-02T00:00:00Z", out.LastIndexed)
	assert.Equal(t, map[string]int{"Claude Code": 1, "Cursor": 1}, out.Tools)
	assert.Empty(t, out.StaleWarning)
	assert.NotEmpty(t, out.IndexID)
}

func TestListHandler(t *testing.T) {
	cfg := seedIndex(t)
	list := makeListHandler(cfg)

	_, out, err := list(context.Background(), nil, ListLocationsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = list(context.Background(), nil, ListLocationsInput{Tool: "cursor"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Cursor", out.Locations[0].Tool)
	assert.Equal(t, uint64(1), out.Locations[0].DocCount)

	empty := &Config{IndexDir: t.TempDir(), Schema: schema.New()}
	_, out, err = makeListHandler(empty)(context.Background(), nil, ListLocationsInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(seedIndex(t))
	rec := httptest.NewRecorder()
	NewHealthHandler(server)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)

	missing := NewServer(&Config{IndexDir: t.TempDir()})
	rec = httptest.NewRecorder()
	NewHealthHandler(missing)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMuxRoutes(t *testing.T) {
	mux := NewMux(NewServer(seedIndex(t)), &HTTPHandlerOptions{Stateless: true})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "search_logs")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
