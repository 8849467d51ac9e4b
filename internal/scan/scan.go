package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"fwt-go/internal/fwt"
	"fwt-go/internal/project"
)

// Walker discovers asset files under a project root in lexicographic order.
// Directories matching an exclusion glob are pruned whole; files failing the
// extension filter are left out of the result entirely.
type Walker struct {
	project *project.Project
	logger  fwt.Logger
}

var _ fwt.Scanner = (*Walker)(nil)

// NewWalker creates a Walker over the given project.
func NewWalker(p *project.Project, logger fwt.Logger) *Walker {
	return &Walker{project: p, logger: logger}
}

// Scan walks the project root and returns matching assets. extensions is a
// case-insensitive filter (leading dot optional); excludeDirs are glob
// patterns matched against each directory's project-relative path and its
// base name.
func (w *Walker) Scan(extensions []string, excludeDirs []string) ([]fwt.Asset, error) {
	exts := normalizeExtensions(extensions)

	var assets []fwt.Asset
	root := w.project.Root
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matchesAny(excludeDirs, rel) {
				w.logger.Debug("directory excluded", "dir", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		dataRel, relErr := w.project.Rel(p)
		if relErr != nil {
			return relErr
		}
		assets = append(assets, fwt.Asset{Abs: p, Rel: dataRel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	w.logger.Debug("scan complete", "root", root, "assets", len(assets))
	return assets, nil
}

// matchesAny reports whether the project-relative directory path (or its
// base name) matches any of the glob patterns. Bad patterns are skipped
// rather than failing the walk.
func matchesAny(patterns []string, rel string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, pat := range patterns {
		target := base
		if strings.Contains(pat, "/") {
			target = rel
		}
		if ok, err := filepath.Match(pat, target); err == nil && ok {
			return true
		}
	}
	return false
}

func normalizeExtensions(extensions []string) map[string]bool {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return exts
}
