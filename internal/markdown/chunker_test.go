package markdown

import (
	"strings"
	"testing"
)

// TestChunkDocument_Transcript tests splitting a chat export at H2 turns.
func TestChunkDocument_Transcript(t *testing.T) {
	input := `# Task: fix flaky test

Exported 2026-03-01

## User

Why does TestUpload fail on CI?

## Assistant

The temp dir is shared between tests.

### Details

Use t.TempDir() instead.

## User

Thanks
`

	chunks, err := NewChunker().ChunkDocument([]byte(input))
	if err != nil {
		t.Fatalf("ChunkDocument failed: %v", err)
	}

	// H1, User, Assistant (with H3 inside), User
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}

	if chunks[0].Level != 1 || chunks[0].Title != "Task: fix flaky test" {
		t.Errorf("Chunk 0: got level %d title %q", chunks[0].Level, chunks[0].Title)
	}
	if !strings.Contains(chunks[0].Content, "Exported 2026-03-01") {
		t.Errorf("Chunk 0 missing preamble text")
	}

	if chunks[1].Title != "User" || chunks[1].Content != "Why does TestUpload fail on CI?" {
		t.Errorf("Chunk 1: got title %q content %q", chunks[1].Title, chunks[1].Content)
	}
	if chunks[1].HeaderPath != "Task: fix flaky test > User" {
		t.Errorf("Chunk 1 HeaderPath: got %q", chunks[1].HeaderPath)
	}

	if !strings.Contains(chunks[2].Content, "### Details") || !strings.Contains(chunks[2].Content, "t.TempDir()") {
		t.Errorf("Chunk 2 should keep the H3 subsection, got %q", chunks[2].Content)
	}

	if chunks[3].Title != "User" || chunks[3].Content != "Thanks" {
		t.Errorf("Chunk 3: got title %q content %q", chunks[3].Title, chunks[3].Content)
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("Chunk %d has index %d", i, c.Index)
		}
	}
}

// TestChunkDocument_NoHeaders tests that plain text becomes one chunk.
func TestChunkDocument_NoHeaders(t *testing.T) {
	chunks, err := NewChunker().ChunkDocument([]byte("just some notes\n\nmore notes\n"))
	if err != nil {
		t.Fatalf("ChunkDocument failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Level != 0 || chunks[0].Title != "" {
		t.Errorf("Expected untitled chunk, got level %d title %q", chunks[0].Level, chunks[0].Title)
	}
	if !strings.Contains(chunks[0].Content, "more notes") {
		t.Errorf("Chunk content incomplete: %q", chunks[0].Content)
	}
}

// TestChunkDocument_Preamble tests text before the first heading.
func TestChunkDocument_Preamble(t *testing.T) {
	input := "session started\n\n## Assistant\n\nhello\n"

	chunks, err := NewChunker().ChunkDocument([]byte(input))
	if err != nil {
		t.Fatalf("ChunkDocument failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "session started" {
		t.Errorf("Preamble: got %q", chunks[0].Content)
	}
	if chunks[1].Title != "Assistant" || chunks[1].HeaderPath != "Assistant" {
		t.Errorf("Chunk 1: got title %q path %q", chunks[1].Title, chunks[1].HeaderPath)
	}
}

// TestChunkDocument_Empty tests empty input.
func TestChunkDocument_Empty(t *testing.T) {
	chunks, err := NewChunker().ChunkDocument([]byte("  \n"))
	if err != nil {
		t.Fatalf("ChunkDocument failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks, got %d", len(chunks))
	}
}
