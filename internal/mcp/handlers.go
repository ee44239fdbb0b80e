package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/logsearch/internal/indexer"
	"github.com/bull/logsearch/internal/logs"
	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/query"
	"github.com/bull/logsearch/internal/storage"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	noIndexMessage     = "No log index found. Run `logsearch build` first."
)

// makeSearchHandler creates the search_logs tool handler.
// Each call opens the index read-only, so a rebuild between calls is
// picked up without restarting the server.
func makeSearchHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, SearchLogsInput,
) (*mcp.CallToolResult, SearchLogsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchLogsInput) (
		*mcp.CallToolResult, SearchLogsOutput, error,
	) {
		limit := input.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		limit = min(limit, maxSearchLimit)

		from, to, err := query.ParseRange(input.From, input.To, time.Now())
		if err != nil {
			return nil, SearchLogsOutput{}, err
		}

		exec, err := query.NewExecutor(ctx, cfg.IndexDir, cfg.Schema, cfg.Logger)
		if errors.Is(err, storage.ErrIndexNotFound) {
			return nil, SearchLogsOutput{Results: []LogMatch{}, Message: noIndexMessage}, nil
		}
		if err != nil {
			return nil, SearchLogsOutput{}, fmt.Errorf("open index: %w", err)
		}
		defer exec.Close()

		results, err := exec.Execute(ctx, query.SearchQuery{
			Text:     input.Query,
			Regex:    input.Regex,
			Tool:     input.Tool,
			LogKind:  input.LogKind,
			Category: input.Category,
			Severity: input.Severity,
			Project:  input.Project,
			FilePath: input.FilePath,
			From:     from,
			To:       to,
			Limit:    limit,
			Offset:   max(input.Offset, 0),
		})
		if err != nil {
			return nil, SearchLogsOutput{}, err
		}

		matches := make([]LogMatch, 0, len(results.Results))
		for _, r := range results.Results {
			matches = append(matches, LogMatch{
				DocID:     r.DocID,
				Score:     r.Score,
				Tool:      r.Tool,
				LogKind:   r.LogKind,
				Timestamp: r.Timestamp,
				Severity:  r.Severity,
				Category:  r.Category,
				Project:   r.Project,
				FilePath:  r.FilePath,
				Message:   r.Message,
			})
		}

		out := SearchLogsOutput{
			Results: matches,
			Showing: results.Showing,
			Offset:  results.Offset,
			HasMore: results.HasMore(),
			TookMs:  results.SearchTimeMs,
		}
		if out.HasMore {
			out.NextOffset = results.Offset + results.Showing
		}
		if len(matches) == 0 {
			out.Message = "No matching log entries. Try fewer filters or broader terms."
		}
		return nil, out, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st, err := indexer.ReadStatus(ctx, cfg.IndexDir, cfg.Schema)
		if errors.Is(err, storage.ErrIndexNotFound) {
			return nil, StatusOutput{
				IndexDir:     cfg.IndexDir,
				Tools:        map[string]int{},
				StaleWarning: noIndexMessage,
			}, nil
		}
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: %w", err)
		}

		out := StatusOutput{
			IndexDir:      st.IndexDir,
			IndexID:       st.IndexID,
			SchemaVersion: st.SchemaVersion,
			TotalDocs:     st.DocCount,
			Locations:     st.Locations,
			SourceBytes:   st.SourceBytes,
			IndexBytes:    st.IndexSizeBytes,
			Tools:         st.Tools,
		}
		if !st.LastIndexed.IsZero() {
			out.LastIndexed = st.LastIndexed.Format(time.RFC3339)
		}
		if !st.Consistent {
			out.StaleWarning = "Index metadata does not match the index. Run `logsearch update` to repair it."
		}
		return nil, out, nil
	}
}

// makeListHandler creates the list_locations tool handler.
func makeListHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, ListLocationsInput,
) (*mcp.CallToolResult, ListLocationsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListLocationsInput) (
		*mcp.CallToolResult, ListLocationsOutput, error,
	) {
		locs, err := indexer.ListLocations(cfg.IndexDir, input.Tool)
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, ListLocationsOutput{Locations: []LocationInfo{}}, nil
		}
		if err != nil {
			return nil, ListLocationsOutput{}, fmt.Errorf("metadata_error: %w", err)
		}

		infos := make([]LocationInfo, 0, len(locs))
		for _, loc := range locs {
			tool := logs.ToolFromPath(loc.Path)
			if tool == "" {
				tool = "Unknown"
			}
			infos = append(infos, LocationInfo{
				Path:         loc.Path,
				Tool:         tool,
				Kind:         logs.KindFromPath(loc.Path),
				DocCount:     loc.DocCount,
				SizeBytes:    loc.SizeBytes,
				LastModified: loc.LastModified.UTC().Format(time.RFC3339),
			})
		}
		return nil, ListLocationsOutput{Locations: infos, Count: len(infos)}, nil
	}
}
