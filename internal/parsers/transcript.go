package parsers

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/bull/logsearch/internal/logs"
	"github.com/bull/logsearch/internal/markdown"
)

// Transcript parses markdown chat exports (Cline task exports, aider chat
// history, Cursor composer exports): each H1/H2 section is one entry.
type Transcript struct {
	chunker *markdown.Chunker
}

// NewTranscript creates a markdown transcript parser.
func NewTranscript() *Transcript {
	return &Transcript{chunker: markdown.NewChunker()}
}

func (p *Transcript) Name() string { return "markdown" }

func (p *Transcript) CanParse(path string) bool {
	return hasExt(path, ".md", ".markdown")
}

func (p *Transcript) Parse(path string) (*logs.ParsedLog, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	chunks, err := p.chunker.ChunkDocument(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	entries := make([]logs.Entry, 0, len(chunks))
	for _, c := range chunks {
		message := c.Content
		if message == "" {
			message = c.Title
		}
		if strings.TrimSpace(message) == "" {
			continue
		}
		entry := logs.Entry{
			Timestamp: SniffTimestamp(c.Title),
			Severity:  logs.SeverityInfo,
			Category:  sectionCategory(c.Title),
			Message:   message,
		}
		if entry.Category == logs.CategoryError {
			entry.Severity = logs.SeverityError
		}
		entries = append(entries, entry)
	}

	return newParsedLog(path, entries), nil
}

// sectionCategory classifies a transcript section by its heading.
func sectionCategory(title string) logs.Category {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	has := func(candidates ...string) bool {
		for _, w := range words {
			if slices.Contains(candidates, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("error", "errors", "failure", "failed"):
		return logs.CategoryError
	case has("user", "human", "prompt", "you", "me"):
		return logs.CategoryUserPrompt
	case has("tool", "command", "terminal", "shell"):
		return logs.CategoryToolUse
	case has("assistant", "claude", "cline", "cursor", "copilot", "aider", "ai", "model", "response"):
		return logs.CategoryAssistantResponse
	case has("system", "summary", "task", "session"):
		return logs.CategorySystemEvent
	}
	return logs.CategoryUnknown
}
