package parsers

import (
	"strings"
	"time"

	"github.com/bull/logsearch/internal/logs"
)

// severityWords are checked in order against a lower-cased line.
var severityWords = []struct {
	words    []string
	severity logs.Severity
}{
	{[]string{"error", "fatal", "panic", "exception", "traceback"}, logs.SeverityError},
	{[]string{"warn"}, logs.SeverityWarn},
	{[]string{"debug", "trace"}, logs.SeverityDebug},
}

var categoryWords = []struct {
	words    []string
	category logs.Category
}{
	{[]string{"user", "prompt", "question", "human"}, logs.CategoryUserPrompt},
	{[]string{"assistant", "response", "answer"}, logs.CategoryAssistantResponse},
	{[]string{"tool", "function", "call", "edit", "write", "file"}, logs.CategoryToolUse},
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// InferSeverity guesses a severity from keywords, defaulting to Info.
func InferSeverity(line string) logs.Severity {
	lower := strings.ToLower(line)
	for _, sw := range severityWords {
		if containsAny(lower, sw.words) {
			return sw.severity
		}
	}
	return logs.SeverityInfo
}

// InferCategory guesses a category from keywords. Error lines that mention
// nothing more specific are categorized as errors.
func InferCategory(line string) logs.Category {
	lower := strings.ToLower(line)
	for _, cw := range categoryWords {
		if containsAny(lower, cw.words) {
			return cw.category
		}
	}
	if InferSeverity(line) == logs.SeverityError {
		return logs.CategoryError
	}
	return logs.CategoryUnknown
}

var prefixLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// SniffTimestamp finds a time in a log line: any whitespace-separated
// RFC3339 token, or a "2006-01-02 15:04:05" prefix (optionally in
// brackets) read as UTC.
func SniffTimestamp(line string) *time.Time {
	trimmed := strings.TrimLeft(line, "[ ")
	for _, layout := range prefixLayouts {
		if len(trimmed) >= len(layout) {
			if t, err := time.Parse(layout, trimmed[:len(layout)]); err == nil {
				return &t
			}
		}
	}

	for _, tok := range strings.Fields(line) {
		if !strings.Contains(tok, "T") || !strings.Contains(tok, ":") {
			continue
		}
		tok = strings.Trim(tok, "[](),;\"'")
		if t, err := time.Parse(time.RFC3339Nano, tok); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseTimeValue reads a JSON timestamp: RFC3339 text, or a Unix time in
// seconds or milliseconds.
func parseTimeValue(v any) *time.Time {
	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			t = t.UTC()
			return &t
		}
		return SniffTimestamp(x)
	case float64:
		if x <= 0 {
			return nil
		}
		var t time.Time
		if x > 1e12 {
			t = time.UnixMilli(int64(x)).UTC()
		} else {
			t = time.Unix(int64(x), 0).UTC()
		}
		return &t
	}
	return nil
}
