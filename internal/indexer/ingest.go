package indexer

import (
	"context"
	"fmt"

	"github.com/bull/logsearch/internal/logs"
	"github.com/bull/logsearch/internal/metadata"
	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

// ingest parses each location, streams its entries into w in batches and
// records the location in meta. A path listed twice is ingested once.
// Per-location failures are skipped; only index write failures are
// returned.
func (b *Builder) ingest(
	ctx context.Context,
	w *storage.Writer,
	locations []logs.Location,
	meta *metadata.IndexMetadata,
	result *IndexResult,
) error {
	nextID := w.NextDocID()
	batch := make([]schema.Document, 0, min(b.cfg.BatchSize, 4096))

	seen := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		if _, dup := seen[loc.Path]; dup {
			continue
		}
		seen[loc.Path] = struct{}{}

		state, err := metadata.Probe(loc.Path)
		if err != nil {
			// Its documents are gone from the index, so drop the record too.
			// The next update sees the path as new and tries again.
			meta.Remove(loc.Path)
			b.logger.Warn("Failed to fingerprint location", "path", loc.Path, "error", err)
			result.Skipped = append(result.Skipped, SkippedLocation{Path: loc.Path, Reason: err.Error()})
			continue
		}

		count, reason, err := b.indexLocation(ctx, w, loc, &nextID, &batch)
		if err != nil {
			return err
		}
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedLocation{Path: loc.Path, Reason: reason})
		} else {
			result.FilesIndexed++
			result.DocsIndexed += count
		}

		meta.Upsert(metadata.LocationMetadata{
			Path:               loc.Path,
			ContentFingerprint: state.Fingerprint,
			SizeBytes:          state.SizeBytes,
			LastModified:       state.LastModified,
			DocCount:           count,
		})
	}
	return nil
}

// indexLocation returns the number of documents written for loc, or a
// non-empty reason when the location was skipped.
func (b *Builder) indexLocation(
	ctx context.Context,
	w *storage.Writer,
	loc logs.Location,
	nextID *uint64,
	batch *[]schema.Document,
) (uint64, string, error) {
	parser := b.selectParser(loc.Path)
	if parser == nil {
		b.logger.Debug("No parser for location", "path", loc.Path)
		return 0, "no parser", nil
	}

	parsed, err := parser.Parse(loc.Path)
	if err != nil {
		b.logger.Warn("Failed to parse location", "path", loc.Path, "parser", parser.Name(), "error", err)
		return 0, fmt.Sprintf("parse (%s): %v", parser.Name(), err), nil
	}

	var count uint64
	for _, entry := range parsed.Entries {
		*batch = append(*batch, schema.FromEntry(*nextID, loc, parsed.Tool, entry))
		*nextID++
		count++
		if len(*batch) >= b.cfg.BatchSize {
			if err := b.submit(ctx, w, batch); err != nil {
				return 0, "", err
			}
		}
	}
	if err := b.submit(ctx, w, batch); err != nil {
		return 0, "", err
	}

	b.logger.Debug("Indexed location", "path", loc.Path, "parser", parser.Name(), "docs", count)
	return count, "", nil
}

func (b *Builder) submit(ctx context.Context, w *storage.Writer, batch *[]schema.Document) error {
	if len(*batch) == 0 {
		return nil
	}
	if err := w.AddBatch(ctx, *batch); err != nil {
		return err
	}
	*batch = (*batch)[:0]
	return nil
}

func (b *Builder) selectParser(path string) logs.Parser {
	for _, p := range b.parsers {
		if p.CanParse(path) {
			return p
		}
	}
	return nil
}
