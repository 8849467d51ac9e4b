package nedb

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"fwt-go/internal/fwt"
	"fwt-go/internal/project"
)

// dbDirs are the project subdirectories holding newline-delimited JSON
// databases.
var dbDirs = []string{"data", "packs"}

// Index holds every database document of a project in memory, plus the
// project manifest, so path references can be counted and rewritten across
// all of them in one pass.
type Index struct {
	project *project.Project
	docs    []*Document
	locator Locator
	logger  fwt.Logger

	// Malformed records any per-line parse failures found during load.
	// Bad lines are kept verbatim and excluded from rewriting.
	Malformed []fwt.ParseError
}

var _ fwt.ReferenceFinder = (*Index)(nil)

// Load reads the manifest and every .db file under the project's data and
// packs directories. A record that is not valid JSON is reported, logged,
// and carried through unmodified; it never fails the load.
func Load(p *project.Project, logger fwt.Logger) (*Index, error) {
	idx := &Index{project: p, locator: QuotedLocator{}, logger: logger}

	if err := idx.add(p.ManifestPath); err != nil {
		return nil, err
	}

	for _, dir := range dbDirs {
		paths, err := filepath.Glob(filepath.Join(p.Root, dir, "*.db"))
		if err != nil {
			return nil, fmt.Errorf("listing %s databases: %w", dir, err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if err := idx.add(path); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("database index loaded", "documents", len(idx.docs), "malformed", len(idx.Malformed))
	return idx, nil
}

func (i *Index) add(path string) error {
	rel, err := filepath.Rel(i.project.Root, path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	rel = filepath.ToSlash(rel)

	doc, err := LoadDocument(path, rel)
	if err != nil {
		return err
	}

	for n, line := range doc.Lines() {
		if json.Valid([]byte(line)) {
			continue
		}
		doc.MarkMalformed(n)
		perr := fwt.ParseError{
			Path: rel,
			Err:  fmt.Errorf("line %d is not valid JSON", n+1),
		}
		i.Malformed = append(i.Malformed, perr)
		i.logger.Warn("skipping malformed record", "db", rel, "line", n+1)
	}

	i.docs = append(i.docs, doc)
	return nil
}

// Documents returns the loaded documents in load order (manifest first).
func (i *Index) Documents() []*Document {
	return i.docs
}

// Occurrences counts records across all documents that reference rel.
func (i *Index) Occurrences(rel string) int {
	total := 0
	for _, doc := range i.docs {
		total += doc.Occurrences(i.locator, rel)
	}
	return total
}

// Matches returns the distinct substrings of any record matching re, in
// sorted order.
func (i *Index) Matches(re *regexp.Regexp) []string {
	seen := make(map[string]bool)
	for _, doc := range i.docs {
		for _, line := range doc.Lines() {
			for _, m := range re.FindAllString(line, -1) {
				seen[m] = true
			}
		}
	}

	matches := make([]string, 0, len(seen))
	for m := range seen {
		matches = append(matches, m)
	}
	sort.Strings(matches)
	return matches
}

// PathsUnder returns the distinct stored path references that begin with
// prefix, in sorted order. References are recognized as quoted JSON string
// values whose content starts with the prefix.
func (i *Index) PathsUnder(prefix string) []string {
	seen := make(map[string]bool)
	marker := `"` + prefix
	for _, doc := range i.docs {
		for _, line := range doc.Lines() {
			for rest := line; ; {
				start := strings.Index(rest, marker)
				if start < 0 {
					break
				}
				rest = rest[start+1:]
				end := strings.IndexByte(rest, '"')
				if end < 0 {
					break
				}
				candidate := rest[:end]
				rest = rest[end+1:]
				// Stored references never contain escapes or spaces.
				if strings.ContainsAny(candidate, `\ `) {
					continue
				}
				seen[candidate] = true
			}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
