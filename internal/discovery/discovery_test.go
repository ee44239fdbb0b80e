package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/logsearch/internal/logs"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	home := t.TempDir()
	claude := filepath.Join(home, ".claude")
	touch(t, filepath.Join(claude, "history.jsonl"), `{"display":"hi"}`)
	touch(t, filepath.Join(claude, "projects", "app", "s1.jsonl"), `{}`)
	touch(t, filepath.Join(claude, "debug", "run.txt"), "debug line")
	touch(t, filepath.Join(claude, "state.db"), "sqlite")
	touch(t, filepath.Join(claude, "node_modules", "pkg", "x.log"), "ignored")
	touch(t, filepath.Join(claude, ".git", "HEAD.log"), "ignored")
	aider := filepath.Join(home, ".aider")
	touch(t, filepath.Join(aider, "chat.history.md"), "# chat")

	w := New([]string{claude, aider, filepath.Join(home, "missing")}, nil)
	locs, err := w.Discover(context.Background())
	require.NoError(t, err)

	byPath := make(map[string]logs.Location)
	for _, l := range locs {
		byPath[l.Path] = l
	}
	require.Len(t, byPath, 4)

	hist := byPath[filepath.Join(claude, "history.jsonl")]
	assert.Equal(t, "Claude Code", hist.Tool)
	assert.Equal(t, logs.KindHistory, hist.Kind)
	assert.Equal(t, uint64(len(`{"display":"hi"}`)), hist.SizeBytes)

	session := byPath[filepath.Join(claude, "projects", "app", "s1.jsonl")]
	assert.Equal(t, logs.KindSession, session.Kind)

	dbg := byPath[filepath.Join(claude, "debug", "run.txt")]
	assert.Equal(t, logs.KindDebug, dbg.Kind)

	chat := byPath[filepath.Join(aider, "chat.history.md")]
	assert.Equal(t, "Aider", chat.Tool)

	for i := 1; i < len(locs); i++ {
		assert.Less(t, locs[i-1].Path, locs[i].Path, "sorted by path")
	}
}

func TestDiscoverDeduplicatesOverlappingRoots(t *testing.T) {
	home := t.TempDir()
	root := filepath.Join(home, ".claude")
	touch(t, filepath.Join(root, "projects", "a", "s.jsonl"), `{}`)

	w := New([]string{root, filepath.Join(root, "projects")}, nil)
	locs, err := w.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, locs, 1)
}

func TestDiscoverCanceled(t *testing.T) {
	home := t.TempDir()
	touch(t, filepath.Join(home, "a.log"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New([]string{home}, nil).Discover(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRoots(t *testing.T) {
	roots := DefaultRoots("/home/dev")
	assert.Contains(t, roots, filepath.Join("/home/dev", ".claude"))
	for _, r := range roots {
		assert.True(t, filepath.IsAbs(r), r)
	}
}
