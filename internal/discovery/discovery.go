// Package discovery finds AI assistant log files on the local machine.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bull/logsearch/internal/logs"
)

// DefaultExtensions are the file types the parsers know how to read.
var DefaultExtensions = []string{".jsonl", ".ndjson", ".log", ".txt", ".md", ".markdown"}

// skipDirs are never descended into.
var skipDirs = []string{".git", "node_modules", "cache", "Cache", "CachedData", "GPUCache"}

// DefaultRoots lists the directories assistants are known to log under,
// relative to home.
func DefaultRoots(home string) []string {
	rel := []string{
		".claude",
		".config/Code/User/globalStorage/saoudrizwan.claude-dev",
		".config/Code/User/globalStorage/rooveterinaryinc.roo-cline",
		".var/app/com.visualstudio.code/config/Code/User/globalStorage/saoudrizwan.claude-dev",
		".cursor",
		".config/Cursor/logs",
		".kiro",
		".codeium",
		".continue",
		".aider",
	}
	roots := make([]string, 0, len(rel))
	for _, r := range rel {
		roots = append(roots, filepath.Join(home, r))
	}
	return roots
}

// Walker discovers log files beneath a set of root directories.
type Walker struct {
	roots      []string
	extensions []string
	logger     *slog.Logger
}

// New creates a walker over roots. Missing roots are ignored at walk time.
func New(roots []string, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		roots:      roots,
		extensions: DefaultExtensions,
		logger:     logger,
	}
}

// Roots returns the configured root directories.
func (w *Walker) Roots() []string {
	return slices.Clone(w.roots)
}

// Discover walks every root and returns one location per matching file,
// sorted by path. Unreadable subtrees are logged and skipped.
func (w *Walker) Discover(ctx context.Context) ([]logs.Location, error) {
	seen := make(map[string]bool)
	var locations []logs.Location

	for _, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("Skipping missing root", "root", abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				w.logger.Warn("Cannot read path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != abs && slices.Contains(skipDirs, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !w.wanted(path) || seen[path] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			seen[path] = true
			locations = append(locations, logs.Location{
				Tool:      toolFor(path),
				Path:      path,
				Kind:      logs.KindFromPath(path),
				SizeBytes: uint64(info.Size()),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", abs, err)
		}
	}

	slices.SortFunc(locations, func(a, b logs.Location) int {
		return strings.Compare(a.Path, b.Path)
	})
	w.logger.Debug("Discovered locations", "count", len(locations), "roots", len(w.roots))
	return locations, nil
}

func (w *Walker) wanted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(w.extensions, ext)
}

func toolFor(path string) string {
	if tool := logs.ToolFromPath(path); tool != "" {
		return tool
	}
	return "Unknown"
}
