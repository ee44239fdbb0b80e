// Package mcp exposes the log index to MCP clients.
package mcp

// SearchLogsInput defines the input parameters for the search_logs tool.
type SearchLogsInput struct {
	// Query is free text, or a regular expression when Regex is set.
	Query string `json:"query,omitempty" jsonschema:"Words to search for in log messages; quoted phrases, prefix* terms and AND/OR/NOT are supported. Empty matches everything."`
	Regex bool   `json:"regex,omitempty" jsonschema:"Treat query as a regular expression over the message"`

	Tool     string `json:"tool,omitempty" jsonschema:"Only logs written by this tool, e.g. Claude Code or Cursor"`
	LogKind  string `json:"log_kind,omitempty" jsonschema:"Only this kind of log: History, Session, Debug, Todo, FileHistory, ShellSnapshot, Telemetry"`
	Category string `json:"category,omitempty" jsonschema:"Only this category: UserPrompt, AssistantResponse, ToolUse, SystemEvent, Error"`
	Severity string `json:"severity,omitempty" jsonschema:"Only this severity: Debug, Info, Warn, Error"`
	Project  string `json:"project,omitempty" jsonschema:"Only logs from this project"`
	FilePath string `json:"file_path,omitempty" jsonschema:"Only logs from this exact file path"`

	// From and To accept YYYY-MM-DD, RFC3339 or relative ages like 7d.
	From string `json:"from,omitempty" jsonschema:"Earliest timestamp: YYYY-MM-DD, RFC3339, or an age such as 7d, 2w, 3m, 1y"`
	To   string `json:"to,omitempty" jsonschema:"Latest timestamp, same forms as from; a date covers the whole day"`

	Limit  int `json:"limit,omitempty" jsonschema:"Maximum results to return (default 20)"`
	Offset int `json:"offset,omitempty" jsonschema:"Results to skip, for paging"`
}

// SearchLogsOutput contains one page of matches.
type SearchLogsOutput struct {
	Results    []LogMatch `json:"results"`
	Showing    int        `json:"showing"`
	Offset     int        `json:"offset"`
	HasMore    bool       `json:"has_more"`
	NextOffset int        `json:"next_offset,omitempty"`
	TookMs     int64      `json:"took_ms"`
	// Message provides informational context (e.g., "No matching log entries").
	Message string `json:"message,omitempty"`
}

// LogMatch is a single matching log entry.
type LogMatch struct {
	DocID     uint64  `json:"doc_id"`
	Score     float64 `json:"score"`
	Tool      string  `json:"tool"`
	LogKind   string  `json:"log_kind"`
	Timestamp string  `json:"timestamp,omitempty"`
	Severity  string  `json:"severity"`
	Category  string  `json:"category"`
	Project   string  `json:"project"`
	FilePath  string  `json:"file_path"`
	Message   string  `json:"message"`
}

// StatusInput is empty; index_status takes no parameters.
type StatusInput struct{}

// StatusOutput reports the state of the index.
type StatusOutput struct {
	IndexDir      string         `json:"index_dir"`
	IndexID       string         `json:"index_id"`
	SchemaVersion string         `json:"schema_version"`
	TotalDocs     uint64         `json:"total_docs"`
	Locations     int            `json:"locations"`
	SourceBytes   uint64         `json:"source_bytes"`
	IndexBytes    uint64         `json:"index_bytes"`
	LastIndexed   string         `json:"last_indexed,omitempty"`
	Tools         map[string]int `json:"tools"`
	// StaleWarning is set when metadata and index disagree; running update fixes it.
	StaleWarning string `json:"stale_warning,omitempty"`
}

// ListLocationsInput filters list_locations.
type ListLocationsInput struct {
	Tool string `json:"tool,omitempty" jsonschema:"Only locations written by this tool"`
}

// ListLocationsOutput contains the indexed log files.
type ListLocationsOutput struct {
	Locations []LocationInfo `json:"locations"`
	Count     int            `json:"count"`
}

// LocationInfo describes one indexed file.
type LocationInfo struct {
	Path         string `json:"path"`
	Tool         string `json:"tool"`
	Kind         string `json:"kind"`
	DocCount     uint64 `json:"doc_count"`
	SizeBytes    uint64 `json:"size_bytes"`
	LastModified string `json:"last_modified"`
}
