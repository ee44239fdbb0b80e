// Package logs defines the normalized log model shared by discovery, parsers and the index.
package logs

import (
	"context"
	"time"
)

// Severity is the normalized level of a log entry.
type Severity string

const (
	SeverityDebug Severity = "Debug"
	SeverityInfo  Severity = "Info"
	SeverityWarn  Severity = "Warn"
	SeverityError Severity = "Error"
)

// Category classifies what a log entry records.
type Category string

const (
	CategoryUserPrompt        Category = "UserPrompt"
	CategoryAssistantResponse Category = "AssistantResponse"
	CategoryToolUse           Category = "ToolUse"
	CategorySystemEvent       Category = "SystemEvent"
	CategoryError             Category = "Error"
	CategoryUnknown           Category = "Unknown"
)

// Kind names the type of file a location holds.
const (
	KindHistory       = "History"
	KindDebug         = "Debug"
	KindFileHistory   = "FileHistory"
	KindShellSnapshot = "ShellSnapshot"
	KindTodo          = "Todo"
	KindSession       = "Session"
	KindTelemetry     = "Telemetry"
	KindUnknown       = "Unknown"
)

// Location is one candidate file produced by discovery. Path is its identity.
type Location struct {
	Tool      string // "Claude Code", "Cursor", ...
	Path      string // Absolute file path
	Kind      string // One of the Kind* constants
	SizeBytes uint64 // Size at discovery time
}

// Entry is a single normalized record emitted by a parser.
type Entry struct {
	Timestamp *time.Time // nil when the source line carried no time
	Severity  Severity
	Category  Category
	Message   string
}

// ParsedLog is everything a parser extracted from one location.
type ParsedLog struct {
	Tool     string
	Entries  []Entry
	Metadata ParsedMetadata
}

// ParsedMetadata summarizes a parsed file.
type ParsedMetadata struct {
	FileSize   uint64
	EntryCount int
	Oldest     *time.Time
	Newest     *time.Time
}

// Parser turns the content of one location into entries.
// Implementations are tried in a fixed order; the first whose CanParse
// holds is used.
type Parser interface {
	Name() string
	CanParse(path string) bool
	Parse(path string) (*ParsedLog, error)
}

// Discoverer produces the candidate locations to consider for indexing.
type Discoverer interface {
	Discover(ctx context.Context) ([]Location, error)
}

// DiscovererFunc adapts a plain function to the Discoverer interface.
type DiscovererFunc func(ctx context.Context) ([]Location, error)

// Discover calls f(ctx).
func (f DiscovererFunc) Discover(ctx context.Context) ([]Location, error) {
	return f(ctx)
}

// StaticLocations returns a Discoverer that always yields locs.
func StaticLocations(locs ...Location) Discoverer {
	return DiscovererFunc(func(context.Context) ([]Location, error) {
		out := make([]Location, len(locs))
		copy(out, locs)
		return out, nil
	})
}

// DateRange returns the oldest and newest timestamps among entries.
func DateRange(entries []Entry) (oldest, newest *time.Time) {
	for i := range entries {
		ts := entries[i].Timestamp
		if ts == nil {
			continue
		}
		if oldest == nil || ts.Before(*oldest) {
			oldest = ts
		}
		if newest == nil || ts.After(*newest) {
			newest = ts
		}
	}
	return oldest, newest
}
