package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bull/logsearch/internal/logs"
	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

// Status describes an index directory as a reader sees it.
type Status struct {
	IndexDir       string
	IndexID        string
	SchemaVersion  string
	DocCount       uint64 // committed documents in the index
	MetadataDocs   uint64 // total_docs recorded in metadata
	Locations      int
	SourceBytes    uint64
	IndexSizeBytes uint64
	LastIndexed    time.Time
	Tools          map[string]int // locations per detected tool
	// Consistent is false when metadata describes a different index or
	// disagrees with the committed document count.
	Consistent bool
}

// ReadStatus inspects indexDir without modifying it. A missing index
// returns storage.ErrIndexNotFound.
func ReadStatus(ctx context.Context, indexDir string, sch *schema.Schema) (*Status, error) {
	ix, err := storage.OpenReader(ctx, indexDir, sch)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	stats, err := ix.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index stats: %w", err)
	}

	st := &Status{
		IndexDir:       indexDir,
		IndexID:        stats.IndexID,
		SchemaVersion:  stats.SchemaVersion,
		DocCount:       stats.DocCount,
		IndexSizeBytes: stats.SizeBytes,
		Tools:          make(map[string]int),
	}

	meta, err := metadata.Load(metadata.PathFor(indexDir))
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		return st, nil
	case err != nil:
		return nil, err
	}

	st.MetadataDocs = meta.TotalDocs
	st.Locations = len(meta.Locations)
	st.SourceBytes = meta.TotalBytes()
	st.LastIndexed = meta.LastIndexed
	st.Consistent = meta.IndexID == stats.IndexID &&
		meta.SchemaVersion == stats.SchemaVersion &&
		meta.TotalDocs == stats.DocCount
	for _, loc := range meta.Locations {
		tool := logs.ToolFromPath(loc.Path)
		if tool == "" {
			tool = "Unknown"
		}
		st.Tools[tool]++
	}
	return st, nil
}

// ListLocations returns the recorded locations, optionally only those
// whose detected tool equals tool.
func ListLocations(indexDir, tool string) ([]metadata.LocationMetadata, error) {
	meta, err := metadata.Load(metadata.PathFor(indexDir))
	if err != nil {
		return nil, err
	}
	if tool == "" {
		return meta.Locations, nil
	}
	var out []metadata.LocationMetadata
	for _, loc := range meta.Locations {
		if strings.EqualFold(logs.ToolFromPath(loc.Path), tool) {
			out = append(out, loc)
		}
	}
	return out, nil
}
