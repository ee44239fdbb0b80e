// Package indexer builds and incrementally updates the log index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bull/logsearch/internal/logs"
	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

const (
	DefaultBatchSize      = 10_000
	DefaultMemoryBudgetMB = 500
)

// IndexResult contains statistics about a build or update.
type IndexResult struct {
	TotalDocs      uint64 // documents in the index afterwards
	TotalFiles     int    // locations recorded in metadata afterwards
	TotalBytes     uint64 // recorded size of those locations
	IndexSizeBytes uint64
	DocsIndexed    uint64 // documents written by this call
	FilesIndexed   int    // locations that contributed documents this call
	FilesRemoved   int    // locations retracted because discovery lost them
	Skipped        []SkippedLocation
	FullBuild      bool
	NoOp           bool
	Duration       time.Duration
}

// SkippedLocation is a location that contributed no documents.
type SkippedLocation struct {
	Path   string
	Reason string
}

// Config tunes the builder.
type Config struct {
	IndexDir       string
	BatchSize      int // documents per batch submit; default 10,000
	MemoryBudgetMB int // writer page cache; default 500
}

// Builder owns write access to one index directory and its metadata file.
type Builder struct {
	cfg        Config
	schema     *schema.Schema
	discoverer logs.Discoverer
	parsers    []logs.Parser
	logger     *slog.Logger
}

// NewBuilder creates a builder. parsers are tried in order; the first that
// claims a path parses it.
func NewBuilder(
	cfg Config,
	sch *schema.Schema,
	discoverer logs.Discoverer,
	parsers []logs.Parser,
	logger *slog.Logger,
) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MemoryBudgetMB <= 0 {
		cfg.MemoryBudgetMB = DefaultMemoryBudgetMB
	}
	return &Builder{
		cfg:        cfg,
		schema:     sch,
		discoverer: discoverer,
		parsers:    parsers,
		logger:     logger,
	}
}

// MetadataPath returns where the builder persists IndexMetadata.
func (b *Builder) MetadataPath() string {
	return metadata.PathFor(b.cfg.IndexDir)
}

// BuildInitialIndex indexes every discovered location from scratch and
// writes fresh metadata. Documents from earlier builds are removed in the
// same commit.
func (b *Builder) BuildInitialIndex(ctx context.Context) (*IndexResult, error) {
	start := time.Now()
	b.logger.Info("Starting full build", "index_dir", b.cfg.IndexDir)

	locations, err := b.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	b.logger.Info("Found locations", "count", len(locations))

	ix, err := b.openIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	indexID, err := ix.IndexID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrIndexOpen, err)
	}

	w, err := ix.BeginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer w.Rollback()

	cleared, err := w.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	if cleared > 0 {
		b.logger.Info("Cleared previous documents", "count", cleared)
	}

	meta := metadata.New(b.schema.Version(), indexID)
	result := &IndexResult{FullBuild: true}
	if err := b.ingest(ctx, w, locations, meta, result); err != nil {
		return nil, err
	}

	return b.finish(ctx, w, meta, result, start)
}

// UpdateIndex reindexes only the locations whose fingerprint changed and
// retracts locations discovery no longer reports. Without usable metadata
// it falls back to BuildInitialIndex. Corrupt metadata is returned as
// metadata.ErrMetadataCorrupt.
func (b *Builder) UpdateIndex(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	meta, err := metadata.Load(b.MetadataPath())
	if errors.Is(err, metadata.ErrNotFound) {
		b.logger.Info("No index metadata, running full build", "path", b.MetadataPath())
		return b.BuildInitialIndex(ctx)
	}
	if err != nil {
		return nil, err
	}
	if meta.SchemaVersion != b.schema.Version() {
		b.logger.Info("Schema version changed, running full build",
			"stored", meta.SchemaVersion, "current", b.schema.Version())
		return b.BuildInitialIndex(ctx)
	}

	if _, err := os.Stat(filepath.Join(b.cfg.IndexDir, storage.DBFileName)); err != nil {
		b.logger.Warn("Index database missing, running full build", "index_dir", b.cfg.IndexDir)
		return b.BuildInitialIndex(ctx)
	}

	locations, err := b.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	changed := metadata.DetectChanges(meta, locations)
	removed := metadata.DetectRemoved(meta, locations)
	if len(changed) == 0 && len(removed) == 0 {
		b.logger.Info("Index up to date", "locations", len(locations), "docs", meta.TotalDocs)
		size, _ := storage.DirSize(b.cfg.IndexDir)
		return &IndexResult{
			TotalDocs:      meta.TotalDocs,
			TotalFiles:     len(meta.Locations),
			TotalBytes:     meta.TotalBytes(),
			IndexSizeBytes: size,
			NoOp:           true,
			Duration:       time.Since(start),
		}, nil
	}

	ix, err := b.openIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	indexID, err := ix.IndexID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrIndexOpen, err)
	}
	if indexID != meta.IndexID {
		ix.Close()
		b.logger.Warn("Metadata belongs to another index, running full build",
			"metadata_index_id", meta.IndexID, "index_id", indexID)
		return b.BuildInitialIndex(ctx)
	}

	b.logger.Info("Starting incremental update",
		"changed", len(changed), "removed", len(removed), "discovered", len(locations))

	w, err := ix.BeginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer w.Rollback()

	for _, path := range removed {
		n, err := w.DeleteByPath(ctx, path)
		if err != nil {
			return nil, err
		}
		meta.Remove(path)
		b.logger.Debug("Retracted removed location", "path", path, "docs", n)
	}

	seen := make(map[string]struct{}, len(changed))
	for _, loc := range changed {
		if _, dup := seen[loc.Path]; dup {
			continue
		}
		seen[loc.Path] = struct{}{}
		n, err := w.DeleteByPath(ctx, loc.Path)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("Deleted stale documents", "path", loc.Path, "docs", n)
	}

	result := &IndexResult{FilesRemoved: len(removed)}
	if err := b.ingest(ctx, w, changed, meta, result); err != nil {
		return nil, err
	}

	return b.finish(ctx, w, meta, result, start)
}

func (b *Builder) openIndex(ctx context.Context) (*storage.Index, error) {
	ix, err := storage.Open(ctx, b.cfg.IndexDir, b.schema, storage.Options{
		MemoryBudgetMB: b.cfg.MemoryBudgetMB,
		Logger:         b.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return ix, nil
}

// finish commits the writer, then persists metadata. Metadata is written
// only after the commit succeeded.
func (b *Builder) finish(
	ctx context.Context,
	w *storage.Writer,
	meta *metadata.IndexMetadata,
	result *IndexResult,
	start time.Time,
) (*IndexResult, error) {
	if err := w.Commit(ctx, w.NextDocID()); err != nil {
		return nil, err
	}

	meta.LastIndexed = time.Now().UTC()
	if err := metadata.Save(b.MetadataPath(), meta); err != nil {
		return nil, fmt.Errorf("save metadata after commit: %w", err)
	}

	size, err := storage.DirSize(b.cfg.IndexDir)
	if err != nil {
		b.logger.Warn("Failed to measure index size", "error", err)
	}

	result.TotalDocs = meta.TotalDocs
	result.TotalFiles = len(meta.Locations)
	result.TotalBytes = meta.TotalBytes()
	result.IndexSizeBytes = size
	result.Duration = time.Since(start)

	b.logger.Info("Indexing complete",
		"docs_indexed", result.DocsIndexed,
		"total_docs", result.TotalDocs,
		"files_indexed", result.FilesIndexed,
		"skipped", len(result.Skipped),
		"removed", result.FilesRemoved,
		"duration", result.Duration,
	)
	return result, nil
}
