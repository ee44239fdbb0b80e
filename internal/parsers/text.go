package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bull/logsearch/internal/logs"
)

const maxTextLine = 1 << 20

// binaryExts are never handed to the text parser.
var binaryExts = []string{
	".db", ".sqlite", ".vscdb", ".png", ".jpg", ".jpeg", ".gif", ".webp",
	".gz", ".zip", ".tar", ".wasm", ".bin", ".pdf",
}

// Text is the fallback parser: one entry per non-blank line with severity,
// category and timestamp guessed from the line itself.
type Text struct {
	maxLines int
}

// NewText creates a text parser reading at most MaxLines lines per file.
func NewText() *Text { return &Text{maxLines: MaxLines} }

func (p *Text) Name() string { return "text" }

func (p *Text) CanParse(path string) bool {
	return !hasExt(path, binaryExts...)
}

func (p *Text) Parse(path string) (*logs.ParsedLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	head, err := reader.Peek(8000)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("%w: read %s: %w", ErrParse, path, err)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, fmt.Errorf("%w: %w: %s", ErrParse, ErrBinary, path)
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTextLine)

	var entries []logs.Entry
	lines := 0
	for scanner.Scan() && lines < p.maxLines {
		lines++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, logs.Entry{
			Timestamp: SniffTimestamp(line),
			Severity:  InferSeverity(line),
			Category:  InferCategory(line),
			Message:   line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrParse, path, err)
	}

	return newParsedLog(path, entries), nil
}
