// Package schema defines the fixed set of indexed fields and the mapping
// from a parsed log entry to an indexed document.
package schema

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/logsearch/internal/logs"
)

// Version is bumped whenever the field set or its storage changes.
// Metadata written under another version is treated as stale.
const Version = "1.0.0"

// Field names.
const (
	FieldDocID     = "doc_id"
	FieldTool      = "tool"
	FieldLogKind   = "log_kind"
	FieldTimestamp = "timestamp"
	FieldSeverity  = "severity"
	FieldCategory  = "category"
	FieldMessage   = "message"
	FieldFilePath  = "file_path"
	FieldProject   = "project"
)

// Kind describes how a field is stored and queried.
type Kind int

const (
	KindID      Kind = iota // Unique integer identity
	KindKeyword             // Stored, exact-match filterable
	KindText                // Stored, full-text analyzed
	KindTime                // Stored as microseconds, range filterable
)

// Field is one indexed field.
type Field struct {
	Name       string
	Column     string
	Kind       Kind
	FoldCase   bool // exact matches ignore ASCII case
	Filterable bool // gets a secondary index
}

// Schema is an immutable description of the index layout. Build it once
// with New and share the pointer between builder and executor.
type Schema struct {
	version  string
	table    string
	ftsTable string
	fields   []Field
	byName   map[string]Field
}

// New returns the log document schema.
func New() *Schema {
	fields := []Field{
		{Name: FieldDocID, Column: "doc_id", Kind: KindID},
		{Name: FieldTool, Column: "tool", Kind: KindKeyword, FoldCase: true, Filterable: true},
		{Name: FieldLogKind, Column: "log_kind", Kind: KindKeyword, FoldCase: true, Filterable: true},
		{Name: FieldTimestamp, Column: "ts_micros", Kind: KindTime, Filterable: true},
		{Name: FieldSeverity, Column: "severity", Kind: KindKeyword, FoldCase: true, Filterable: true},
		{Name: FieldCategory, Column: "category", Kind: KindKeyword, FoldCase: true, Filterable: true},
		{Name: FieldMessage, Column: "message", Kind: KindText},
		{Name: FieldFilePath, Column: "file_path", Kind: KindKeyword, Filterable: true},
		{Name: FieldProject, Column: "project", Kind: KindKeyword, FoldCase: true, Filterable: true},
	}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return &Schema{
		version:  Version,
		table:    "documents",
		ftsTable: "documents_fts",
		fields:   fields,
		byName:   byName,
	}
}

// Version returns the schema version string.
func (s *Schema) Version() string { return s.version }

// Table returns the name of the document table.
func (s *Schema) Table() string { return s.table }

// FTSTable returns the name of the full-text table.
func (s *Schema) FTSTable() string { return s.ftsTable }

// Fields returns the fields in storage order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Document is the persisted, searchable form of one log entry.
type Document struct {
	DocID     uint64
	Tool      string
	LogKind   string
	Timestamp *time.Time // microsecond precision once stored
	Severity  string
	Category  string
	Message   string
	FilePath  string
	Project   string
}

// FromEntry maps a parsed entry into a document. tool is the parser's tool
// name; the location's tool is used when it is empty.
func FromEntry(docID uint64, loc logs.Location, tool string, e logs.Entry) Document {
	if tool == "" {
		tool = loc.Tool
	}
	doc := Document{
		DocID:    docID,
		Tool:     tool,
		LogKind:  loc.Kind,
		Severity: string(e.Severity),
		Category: string(e.Category),
		Message:  e.Message,
		FilePath: loc.Path,
		Project:  ProjectFromPath(loc.Path),
	}
	if doc.LogKind == "" {
		doc.LogKind = logs.KindUnknown
	}
	if doc.Severity == "" {
		doc.Severity = string(logs.SeverityInfo)
	}
	if doc.Category == "" {
		doc.Category = string(logs.CategoryUnknown)
	}
	if e.Timestamp != nil {
		ts := e.Timestamp.UTC().Truncate(time.Microsecond)
		doc.Timestamp = &ts
	}
	return doc
}

// ProjectFromPath derives a project name from a log file path: the segment
// following "projects", else the one following "tasks", otherwise the
// parent directory name.
func ProjectFromPath(path string) string {
	parts := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	for _, marker := range []string{"projects", "tasks"} {
		for i, part := range parts {
			if part == marker && i+1 < len(parts)-1 {
				return parts[i+1]
			}
		}
	}
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return "unknown"
}
