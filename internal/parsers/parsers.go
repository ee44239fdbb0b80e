// Package parsers turns individual log files into normalized entries.
package parsers

import (
	"errors"
	"os"
	"strings"

	"github.com/bull/logsearch/internal/logs"
)

var (
	ErrParse  = errors.New("parse log")
	ErrBinary = errors.New("binary content")
)

// MaxLines caps how many lines a line-oriented parser reads from one file.
const MaxLines = 10_000

// Default returns the parsers in priority order: structured JSONL first,
// markdown transcripts next, plain text last.
func Default() []logs.Parser {
	return []logs.Parser{
		NewJSONL(),
		NewTranscript(),
		NewText(),
	}
}

func hasExt(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func fileSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}

func newParsedLog(path string, entries []logs.Entry) *logs.ParsedLog {
	oldest, newest := logs.DateRange(entries)
	return &logs.ParsedLog{
		Tool:    logs.ToolFromPath(path),
		Entries: entries,
		Metadata: logs.ParsedMetadata{
			FileSize:   fileSize(path),
			EntryCount: len(entries),
			Oldest:     oldest,
			Newest:     newest,
		},
	}
}
