package logs

import (
	"path/filepath"
	"strings"
)

// toolMarkers maps path fragments to tool names, checked in order.
var toolMarkers = []struct {
	markers []string
	tool    string
}{
	{[]string{"roocode", "roo-code", "roo-cline"}, "Roo Code"},
	{[]string{"cline", "claude-dev"}, "Cline"},
	{[]string{".claude"}, "Claude Code"},
	{[]string{"cursor"}, "Cursor"},
	{[]string{"kiro"}, "Kiro"},
	{[]string{"kilo"}, "Kilo Code"},
	{[]string{"windsurf", "codeium"}, "Windsurf"},
	{[]string{"copilot"}, "GitHub Copilot"},
	{[]string{"tabnine"}, "Tabnine"},
	{[]string{"codewhisperer", "code-whisperer"}, "CodeWhisperer"},
	{[]string{"amazonq", "amazon-q"}, "Amazon Q"},
	{[]string{"continue"}, "Continue"},
	{[]string{"aider"}, "Aider"},
	{[]string{"cody", "sourcegraph"}, "Cody"},
	{[]string{"codegpt"}, "CodeGPT"},
	{[]string{"bito"}, "Bito AI"},
	{[]string{"supermaven"}, "Supermaven"},
	{[]string{".vscode"}, "VS Code"},
}

// ToolFromPath guesses which tool wrote path. It returns "" when no
// known marker appears.
func ToolFromPath(path string) string {
	p := strings.ToLower(filepath.ToSlash(path))
	for _, tm := range toolMarkers {
		for _, m := range tm.markers {
			if strings.Contains(p, m) {
				return tm.tool
			}
		}
	}
	return ""
}

// KindFromPath classifies a log file by name and location.
func KindFromPath(path string) string {
	p := strings.ToLower(filepath.ToSlash(path))
	base := filepath.Base(p)
	switch {
	case base == "history.jsonl":
		return KindHistory
	case strings.Contains(p, "/debug/"):
		return KindDebug
	case strings.Contains(p, "file-history"):
		return KindFileHistory
	case strings.Contains(p, "shell-snapshots"):
		return KindShellSnapshot
	case strings.Contains(p, "/todos/"):
		return KindTodo
	case strings.Contains(p, "telemetry") || strings.Contains(p, "statsig"):
		return KindTelemetry
	case strings.Contains(p, "session") || strings.Contains(p, "/projects/") ||
		strings.Contains(p, "/tasks/") || strings.HasSuffix(base, ".jsonl"):
		return KindSession
	}
	return KindUnknown
}
