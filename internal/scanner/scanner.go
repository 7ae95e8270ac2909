// Package scanner matches filesystem trees against path templates.
//
// A template such as
//
//	raw/v%(visit)07d/e%(exposure)03d.dat
//
// both generates concrete paths from a data ID (Template.Render) and, the
// other way around, turns paths found on disk back into typed data IDs
// (Scanner.Scan). Repositories use templates to place datasets; the shelf
// uses scanning to enumerate what a repository already holds.
package scanner

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vk/datashelf/internal/ctxlog"
)

// Scanner scans a filesystem location for paths conforming to a template.
type Scanner struct {
	tmpl *Template
}

// New compiles tmpl into a scanner.
func New(tmpl string) (*Scanner, error) {
	t, err := Parse(tmpl)
	if err != nil {
		return nil, err
	}
	return &Scanner{tmpl: t}, nil
}

// Template returns the scanner's compiled template.
func (s *Scanner) Template() *Template {
	return s.tmpl
}

// Scan globs root for candidate paths and decomposes each match into a data
// ID. The result maps root-relative paths to their data IDs; candidates that
// glob but fail the full template match are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) (map[string]map[string]any, error) {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scanner: scanning %s: %w", root, err)
	}

	paths, err := doublestar.Glob(os.DirFS(root), s.tmpl.Glob())
	if err != nil {
		return nil, fmt.Errorf("scanner: globbing %q under %s: %w", s.tmpl.Glob(), root, err)
	}
	sort.Strings(paths)

	found := make(map[string]map[string]any, len(paths))
	for _, path := range paths {
		dataID, ok := s.tmpl.Match(path)
		if !ok {
			logger.Debug("Path matched glob but not template, skipping.", "path", path)
			continue
		}
		found[path] = dataID
	}
	return found, nil
}
