package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// PathFor returns the metadata file location inside indexDir.
func PathFor(indexDir string) string {
	return filepath.Join(indexDir, FileName)
}

// Load reads metadata from path. A missing file yields ErrNotFound; an
// unreadable or malformed one yields ErrMetadataCorrupt.
func Load(path string) (*IndexMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrMetadataCorrupt, path, err)
	}

	var meta IndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMetadataCorrupt, path, err)
	}
	if meta.SchemaVersion == "" {
		return nil, fmt.Errorf("%w: %s has no schema_version", ErrMetadataCorrupt, path)
	}

	sort.Slice(meta.Locations, func(i, j int) bool {
		return meta.Locations[i].Path < meta.Locations[j].Path
	})
	for i := 1; i < len(meta.Locations); i++ {
		if meta.Locations[i].Path == meta.Locations[i-1].Path {
			return nil, fmt.Errorf("%w: duplicate location %s", ErrMetadataCorrupt, meta.Locations[i].Path)
		}
	}
	if meta.Locations == nil {
		meta.Locations = []LocationMetadata{}
	}
	meta.Recompute()

	return &meta, nil
}

// Save writes meta to path, creating parent directories. The previous file
// is replaced atomically via rename.
func Save(path string, meta *IndexMetadata) error {
	meta.Recompute()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}
