// Package metadata tracks which log locations are indexed, with what content
// fingerprint, and persists that bookkeeping between runs.
package metadata

import (
	"slices"
	"strings"
	"time"
)

// FileName is the metadata file stored inside an index directory.
const FileName = "metadata.json"

// LocationMetadata is the bookkeeping for one indexed location.
type LocationMetadata struct {
	Path               string    `json:"path"`
	ContentFingerprint string    `json:"content_fingerprint"`
	SizeBytes          uint64    `json:"size_bytes"`
	LastModified       time.Time `json:"last_modified"`
	DocCount           uint64    `json:"doc_count"`
}

// IndexMetadata is the persisted state of one index directory.
type IndexMetadata struct {
	SchemaVersion   string             `json:"schema_version"`
	IndexID         string             `json:"index_id"`
	LastIndexed     time.Time          `json:"last_indexed"`
	Locations       []LocationMetadata `json:"locations"` // sorted by path, unique
	TotalDocs       uint64             `json:"total_docs"`
	SemanticEnabled bool               `json:"semantic_enabled"`
}

// New returns empty metadata for a freshly created index.
func New(schemaVersion, indexID string) *IndexMetadata {
	return &IndexMetadata{
		SchemaVersion: schemaVersion,
		IndexID:       indexID,
		Locations:     []LocationMetadata{},
	}
}

func comparePath(m LocationMetadata, path string) int {
	return strings.Compare(m.Path, path)
}

// Lookup returns the metadata recorded for path.
func (m *IndexMetadata) Lookup(path string) (LocationMetadata, bool) {
	i, found := slices.BinarySearchFunc(m.Locations, path, comparePath)
	if !found {
		return LocationMetadata{}, false
	}
	return m.Locations[i], true
}

// Upsert replaces the record with the same path or inserts a new one,
// then recomputes TotalDocs.
func (m *IndexMetadata) Upsert(loc LocationMetadata) {
	i, found := slices.BinarySearchFunc(m.Locations, loc.Path, comparePath)
	if found {
		m.Locations[i] = loc
	} else {
		m.Locations = slices.Insert(m.Locations, i, loc)
	}
	m.Recompute()
}

// Remove drops the record for path. It reports whether one existed.
func (m *IndexMetadata) Remove(path string) bool {
	i, found := slices.BinarySearchFunc(m.Locations, path, comparePath)
	if !found {
		return false
	}
	m.Locations = slices.Delete(m.Locations, i, i+1)
	m.Recompute()
	return true
}

// Recompute sets TotalDocs to the sum of DocCount over all locations.
func (m *IndexMetadata) Recompute() {
	var total uint64
	for _, loc := range m.Locations {
		total += loc.DocCount
	}
	m.TotalDocs = total
}

// TotalBytes sums the recorded sizes of all locations.
func (m *IndexMetadata) TotalBytes() uint64 {
	var total uint64
	for _, loc := range m.Locations {
		total += loc.SizeBytes
	}
	return total
}

// Paths returns the recorded location paths in sorted order.
func (m *IndexMetadata) Paths() []string {
	paths := make([]string, len(m.Locations))
	for i, loc := range m.Locations {
		paths[i] = loc.Path
	}
	return paths
}
