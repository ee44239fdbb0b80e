package parsers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bull/logsearch/internal/logs"
)

const maxJSONLine = 16 << 20

// JSONL parses one-object-per-line logs: prompt histories and session
// transcripts written by Claude Code, Cline and similar tools.
type JSONL struct{}

// NewJSONL creates a JSONL parser.
func NewJSONL() *JSONL { return &JSONL{} }

func (p *JSONL) Name() string { return "jsonl" }

func (p *JSONL) CanParse(path string) bool {
	return hasExt(path, ".jsonl", ".ndjson")
}

// Parse decodes every line it can. Undecodable lines are skipped; a file
// with lines but none decodable fails with ErrParse.
func (p *JSONL) Parse(path string) (*logs.ParsedLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLine)

	var (
		entries []logs.Entry
		lines   int
		decoded int
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		decoded++
		if entry, ok := entryFromJSON(obj); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrParse, path, err)
	}
	if lines > 0 && decoded == 0 {
		return nil, fmt.Errorf("%w: %s has no valid JSON lines", ErrParse, path)
	}

	return newParsedLog(path, entries), nil
}

// entryFromJSON maps one decoded record. Records without any text are
// dropped.
func entryFromJSON(obj map[string]any) (logs.Entry, bool) {
	var entry logs.Entry

	for _, key := range []string{"timestamp", "ts", "time", "created_at"} {
		if v, ok := obj[key]; ok {
			if ts := parseTimeValue(v); ts != nil {
				entry.Timestamp = ts
				break
			}
		}
	}

	category := logs.CategoryUnknown
	message := ""
	switch {
	case str(obj, "userMessage") != "" || str(obj, "prompt") != "" || str(obj, "display") != "":
		category = logs.CategoryUserPrompt
		message = firstStr(obj, "userMessage", "prompt", "display")
	case str(obj, "assistantMessage") != "" || str(obj, "response") != "":
		category = logs.CategoryAssistantResponse
		message = firstStr(obj, "assistantMessage", "response")
	case obj["tool_use"] != nil || obj["toolUse"] != nil || obj["tool_call"] != nil:
		category = logs.CategoryToolUse
	}

	if category == logs.CategoryUnknown {
		category = categoryFromRole(firstStr(obj, "type", "role"))
	}

	var toolOnly bool
	if message == "" {
		message, toolOnly = messageText(obj["message"])
	}
	if message == "" {
		message = firstStr(obj, "content", "text", "summary")
	}
	if toolOnly && category != logs.CategoryToolUse {
		category = logs.CategoryToolUse
	}
	if category == logs.CategoryUnknown && message != "" {
		category = logs.CategorySystemEvent
	}

	errText := errorText(obj["error"])
	switch {
	case errText != "":
		entry.Severity = logs.SeverityError
		if message == "" {
			message = errText
			category = logs.CategoryError
		}
	case levelSeverity(str(obj, "level")) != "":
		entry.Severity = levelSeverity(str(obj, "level"))
	case category == logs.CategoryUserPrompt || category == logs.CategoryAssistantResponse:
		entry.Severity = logs.SeverityInfo
	default:
		entry.Severity = logs.SeverityDebug
	}

	if strings.TrimSpace(message) == "" {
		return logs.Entry{}, false
	}
	entry.Category = category
	entry.Message = message
	return entry, true
}

func categoryFromRole(role string) logs.Category {
	switch strings.ToLower(role) {
	case "user", "user_message", "human":
		return logs.CategoryUserPrompt
	case "assistant", "assistant_message", "ai":
		return logs.CategoryAssistantResponse
	case "tool_use", "tool_result", "tool":
		return logs.CategoryToolUse
	case "system", "summary", "say", "ask":
		return logs.CategorySystemEvent
	case "error":
		return logs.CategoryError
	}
	return logs.CategoryUnknown
}

func levelSeverity(level string) logs.Severity {
	switch strings.ToLower(level) {
	case "error", "fatal", "critical":
		return logs.SeverityError
	case "warn", "warning":
		return logs.SeverityWarn
	case "debug", "trace":
		return logs.SeverityDebug
	case "info", "notice":
		return logs.SeverityInfo
	}
	return ""
}

// messageText extracts text from a "message" value: a string, or an object
// whose "content" is a string or a list of typed parts. toolOnly reports
// that the parts were all tool calls or results.
func messageText(v any) (text string, toolOnly bool) {
	switch m := v.(type) {
	case string:
		return m, false
	case map[string]any:
		return contentText(m["content"])
	}
	return "", false
}

func contentText(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, false
	case []any:
		var parts []string
		tools, other := 0, 0
		for _, raw := range c {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			switch str(part, "type") {
			case "text":
				other++
				parts = append(parts, str(part, "text"))
			case "tool_use":
				tools++
				parts = append(parts, "tool_use: "+str(part, "name"))
			case "tool_result":
				tools++
				if s, _ := contentText(part["content"]); s != "" {
					parts = append(parts, s)
				}
			case "thinking":
				other++
				parts = append(parts, str(part, "thinking"))
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n")), tools > 0 && other == 0
	}
	return "", false
}

func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case map[string]any:
		if s := firstStr(e, "message", "error"); s != "" {
			return s
		}
		return "error"
	case bool:
		if e {
			return "error"
		}
		return ""
	}
	return fmt.Sprint(v)
}

func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func firstStr(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(obj, k); s != "" {
			return s
		}
	}
	return ""
}
