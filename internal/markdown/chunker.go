// Package markdown splits markdown chat transcripts into per-turn sections.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Chunk is one section of a transcript: a heading and the text under it
// up to the next heading of the same or higher level.
type Chunk struct {
	Index      int    // Position in document (0, 1, 2...)
	Level      int    // Heading level; 0 for text before the first heading
	Title      string // Plain heading text
	HeaderPath string // Hierarchy: "Session > User"
	Content    string // Body without the heading line
}

// Chunker splits markdown at heading boundaries up to MaxDepth.
type Chunker struct {
	parser   goldmark.Markdown
	maxDepth int
}

// NewChunker creates a chunker that splits at H1 and H2.
func NewChunker() *Chunker {
	return &Chunker{
		parser: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		maxDepth: 2,
	}
}

// ChunkDocument splits source into sections. Text before the first
// heading becomes a level-0 chunk when it is not blank.
func (c *Chunker) ChunkDocument(source []byte) ([]Chunk, error) {
	doc := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(c.maxDepth),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}
	paths := make(map[string][]string)
	collectPaths(tree.Items, nil, paths)

	type boundary struct {
		level     int
		title     string
		path      []string
		lineStart int // offset of the heading line
		bodyStart int // offset just past the heading line
	}
	var bounds []boundary
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > c.maxDepth || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)
		id, _ := heading.AttributeString("id")
		idStr := ""
		if b, ok := id.([]byte); ok {
			idStr = string(b)
		}
		path := paths[idStr]
		title := ""
		if len(path) > 0 {
			title = path[len(path)-1]
		}
		bounds = append(bounds, boundary{
			level:     heading.Level,
			title:     title,
			path:      path,
			lineStart: lineStart(source, seg.Start),
			bodyStart: lineEnd(source, heading.Lines().At(heading.Lines().Len()-1).Stop),
		})
	}

	var chunks []Chunk
	firstStart := len(source)
	if len(bounds) > 0 {
		firstStart = bounds[0].lineStart
	}
	if pre := strings.TrimSpace(string(source[:firstStart])); pre != "" {
		chunks = append(chunks, Chunk{Content: pre})
	}

	for i, b := range bounds {
		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].lineStart
		}
		body := ""
		if b.bodyStart < end {
			body = strings.TrimSpace(string(source[b.bodyStart:end]))
		}
		chunks = append(chunks, Chunk{
			Level:      b.level,
			Title:      b.title,
			HeaderPath: strings.Join(b.path, " > "),
			Content:    body,
		})
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, nil
}

// collectPaths records the title hierarchy of every TOC item by id.
func collectPaths(items toc.Items, ancestors []string, out map[string][]string) {
	for _, item := range items {
		if len(item.Title) == 0 {
			collectPaths(item.Items, ancestors, out)
			continue
		}
		path := append(append([]string(nil), ancestors...), string(item.Title))
		if len(item.ID) > 0 {
			out[string(item.ID)] = path
		}
		collectPaths(item.Items, path, out)
	}
}

func lineStart(source []byte, offset int) int {
	return bytes.LastIndexByte(source[:offset], '\n') + 1
}

func lineEnd(source []byte, offset int) int {
	if i := bytes.IndexByte(source[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(source)
}
