package logs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToolFromPath(t *testing.T) {
	tests := map[string]string{
		"/home/u/.claude/history.jsonl": "Claude Code",
		"/home/u/.config/Code/User/globalStorage/saoudrizwan.claude-dev/tasks/1/ui.json": "Cline",
		"/home/u/.cursor/logs/main.log":        "Cursor",
		"/home/u/.aider.chat.history.md":       "Aider",
		"/home/u/.continue/sessions/x.json":    "Continue",
		"/var/log/syslog":                      "",
	}
	for path, want := range tests {
		assert.Equal(t, want, ToolFromPath(path), path)
	}
}

func TestKindFromPath(t *testing.T) {
	tests := map[string]string{
		"/home/u/.claude/history.jsonl":                 KindHistory,
		"/home/u/.claude/debug/abc.txt":                 KindDebug,
		"/home/u/.claude/file-history/abc/v1":           KindFileHistory,
		"/home/u/.claude/shell-snapshots/snap.sh":       KindShellSnapshot,
		"/home/u/.claude/todos/t.json":                  KindTodo,
		"/home/u/.claude/statsig/cache":                 KindTelemetry,
		"/home/u/.claude/projects/-home-u-app/s.jsonl":  KindSession,
		"/home/u/notes.txt":                             KindUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, KindFromPath(path), path)
	}
}

func TestDateRange(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	oldest, newest := DateRange([]Entry{{Timestamp: &t2}, {}, {Timestamp: &t1}})
	assert.Equal(t, t1, *oldest)
	assert.Equal(t, t2, *newest)

	oldest, newest = DateRange(nil)
	assert.Nil(t, oldest)
	assert.Nil(t, newest)
}
