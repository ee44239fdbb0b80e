package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/logsearch/internal/logs"
)

func writeFile(t *testing.T, path string, content []byte, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFingerprintStability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	writeFile(t, path, []byte("line one\nline two\n"), mtime)

	first, err := ComputeFingerprint(path)
	require.NoError(t, err)
	second, err := ComputeFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "sha256 hex digest")

	t.Run("append", func(t *testing.T) {
		writeFile(t, path, []byte("line one\nline two\nline three\n"), mtime)
		fp, err := ComputeFingerprint(path)
		require.NoError(t, err)
		assert.NotEqual(t, first, fp)
	})

	t.Run("truncate", func(t *testing.T) {
		writeFile(t, path, []byte("line one\n"), mtime)
		fp, err := ComputeFingerprint(path)
		require.NoError(t, err)
		assert.NotEqual(t, first, fp)
	})

	t.Run("touch", func(t *testing.T) {
		writeFile(t, path, []byte("line one\nline two\n"), mtime)
		fp, err := ComputeFingerprint(path)
		require.NoError(t, err)
		require.Equal(t, first, fp, "same content and mtime restore the digest")

		later := mtime.Add(1500 * time.Millisecond)
		require.NoError(t, os.Chtimes(path, later, later))
		fp, err = ComputeFingerprint(path)
		require.NoError(t, err)
		assert.NotEqual(t, first, fp)
	})
}

func TestFingerprintPrefixWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	content := bytes.Repeat([]byte("a"), PrefixWindow+4096)
	writeFile(t, path, content, mtime)

	before, err := ComputeFingerprint(path)
	require.NoError(t, err)

	// Edit past the window and restore the mtime: the change goes unseen.
	content[PrefixWindow+100] = 'b'
	writeFile(t, path, content, mtime)
	after, err := ComputeFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Edit inside the window is seen.
	content[10] = 'b'
	writeFile(t, path, content, mtime)
	inside, err := ComputeFingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, inside)
}

func TestFingerprintMissingFile(t *testing.T) {
	_, err := ComputeFingerprint(filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFingerprint)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpsertAndTotals(t *testing.T) {
	meta := New("1.0.0", "idx")

	meta.Upsert(LocationMetadata{Path: "/b", DocCount: 4, SizeBytes: 10})
	meta.Upsert(LocationMetadata{Path: "/a", DocCount: 1, SizeBytes: 5})
	meta.Upsert(LocationMetadata{Path: "/b", DocCount: 2, SizeBytes: 7})

	require.Len(t, meta.Locations, 2, "upsert never duplicates a path")
	assert.Equal(t, []string{"/a", "/b"}, meta.Paths())
	assert.Equal(t, uint64(3), meta.TotalDocs)
	assert.Equal(t, uint64(12), meta.TotalBytes())

	got, ok := meta.Lookup("/b")
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.DocCount)

	assert.True(t, meta.Remove("/a"))
	assert.False(t, meta.Remove("/a"))
	assert.Equal(t, uint64(2), meta.TotalDocs)
}

func TestDetectChanges(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	meta := New("1.0.0", "idx")

	var discovered []logs.Location
	for i := 0; i < 25; i++ {
		path := filepath.Join(dir, "logs", string(rune('a'+i))+".log")
		writeFile(t, path, []byte("entry "+path), mtime)
		state, err := Probe(path)
		require.NoError(t, err)
		meta.Upsert(LocationMetadata{
			Path:               path,
			ContentFingerprint: state.Fingerprint,
			SizeBytes:          state.SizeBytes,
			LastModified:       state.LastModified,
			DocCount:           1,
		})
		discovered = append(discovered, logs.Location{Path: path})
	}

	assert.Empty(t, DetectChanges(meta, discovered), "nothing changed")

	changedPath := discovered[7].Path
	writeFile(t, changedPath, []byte("rewritten"), mtime)

	changed := DetectChanges(meta, discovered)
	require.Len(t, changed, 1)
	assert.Equal(t, changedPath, changed[0].Path)
}

func TestDetectChanges_NewAndMissing(t *testing.T) {
	dir := t.TempDir()
	meta := New("1.0.0", "idx")
	gone := filepath.Join(dir, "gone.log")
	meta.Upsert(LocationMetadata{Path: gone, ContentFingerprint: "abc"})

	fresh := filepath.Join(dir, "fresh.log")
	writeFile(t, fresh, []byte("x"), time.Now())

	changed := DetectChanges(meta, []logs.Location{{Path: gone}, {Path: fresh}})
	require.Len(t, changed, 2)
	assert.Equal(t, gone, changed[0].Path, "vanished file forces reindex")
	assert.Equal(t, fresh, changed[1].Path)
}

func TestDetectRemoved(t *testing.T) {
	meta := New("1.0.0", "idx")
	meta.Upsert(LocationMetadata{Path: "/keep"})
	meta.Upsert(LocationMetadata{Path: "/drop-2"})
	meta.Upsert(LocationMetadata{Path: "/drop-1"})

	removed := DetectRemoved(meta, []logs.Location{{Path: "/keep"}, {Path: "/new"}})
	assert.Equal(t, []string{"/drop-1", "/drop-2"}, removed)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index", FileName)
	meta := New("1.0.0", "6f1c2a")
	meta.LastIndexed = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	meta.Upsert(LocationMetadata{
		Path:               "/logs/a.jsonl",
		ContentFingerprint: "deadbeef",
		SizeBytes:          512,
		LastModified:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		DocCount:           9,
	})

	require.NoError(t, Save(path, meta))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, meta.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, meta.IndexID, loaded.IndexID)
	assert.True(t, meta.LastIndexed.Equal(loaded.LastIndexed))
	assert.Equal(t, uint64(9), loaded.TotalDocs)
	require.Len(t, loaded.Locations, 1)
	assert.Equal(t, "deadbeef", loaded.Locations[0].ContentFingerprint)

	// Overwrite keeps a single file and no temp leftovers.
	meta.Upsert(LocationMetadata{Path: "/logs/b.jsonl", DocCount: 1})
	require.NoError(t, Save(path, meta))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, err := Load(garbage)
	assert.ErrorIs(t, err, ErrMetadataCorrupt)

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{
		"schema_version": "1.0.0",
		"locations": [{"path": "/a"}, {"path": "/a"}]
	}`), 0o644))
	_, err = Load(dup)
	assert.ErrorIs(t, err, ErrMetadataCorrupt)
}

func TestLoad_RecomputesTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"schema_version": "1.0.0",
		"total_docs": 999,
		"locations": [{"path": "/b", "doc_count": 2}, {"path": "/a", "doc_count": 3}]
	}`), 0o644))

	meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), meta.TotalDocs)
	assert.Equal(t, []string{"/a", "/b"}, meta.Paths())
}
