package metadata

import (
	"sort"

	"github.com/bull/logsearch/internal/logs"
)

// DetectChanges returns the discovered locations that must be (re)indexed:
// those never indexed, those whose file vanished or cannot be read, and those
// whose fingerprint no longer matches. Order of discovered is preserved.
func DetectChanges(meta *IndexMetadata, discovered []logs.Location) []logs.Location {
	var changed []logs.Location
	for _, loc := range discovered {
		stored, ok := meta.Lookup(loc.Path)
		if !ok {
			changed = append(changed, loc)
			continue
		}
		fp, err := ComputeFingerprint(loc.Path)
		if err != nil || fp != stored.ContentFingerprint {
			changed = append(changed, loc)
		}
	}
	return changed
}

// DetectRemoved returns recorded paths that discovery no longer reports.
func DetectRemoved(meta *IndexMetadata, discovered []logs.Location) []string {
	seen := make(map[string]struct{}, len(discovered))
	for _, loc := range discovered {
		seen[loc.Path] = struct{}{}
	}
	var removed []string
	for _, loc := range meta.Locations {
		if _, ok := seen[loc.Path]; !ok {
			removed = append(removed, loc.Path)
		}
	}
	sort.Strings(removed)
	return removed
}
