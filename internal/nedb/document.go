package nedb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// A Document is one newline-delimited JSON database file held in memory as
// raw lines. Records are never parsed beyond line splitting: path rewrites
// are exact string substitutions, so unrelated fields are preserved
// byte-for-byte, key order included.
type Document struct {
	// Path is the absolute location of the file on disk.
	Path string

	// Rel is the document's path relative to the project root, used for
	// placing backups and trash copies.
	Rel string

	lines           []string
	trailingNewline bool
	malformed       map[int]bool
}

// A Locator decides how a stored path reference appears inside a record
// line. The default matcher requires the full quoted JSON string value, so
// "assets/map.png" never matches inside "assets/map.png.webp".
type Locator interface {
	// Token returns the exact substring that represents a reference to rel.
	Token(rel string) string
}

// QuotedLocator matches references as complete quoted JSON string values.
type QuotedLocator struct{}

func (QuotedLocator) Token(rel string) string {
	return `"` + rel + `"`
}

// LoadDocument reads a database file into memory. Each line must be valid
// on its own; validation is the caller's concern (see Index).
func LoadDocument(path, rel string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseDocument(path, rel, string(data)), nil
}

func parseDocument(path, rel, content string) *Document {
	trailing := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")

	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}
	return &Document{Path: path, Rel: rel, lines: lines, trailingNewline: trailing}
}

// Lines returns the document's records, one raw JSON line each.
func (d *Document) Lines() []string {
	return d.lines
}

// MarkMalformed flags the record at line index i as unparseable. Malformed
// records are carried through saves verbatim and never rewritten.
func (d *Document) MarkMalformed(i int) {
	if d.malformed == nil {
		d.malformed = make(map[int]bool)
	}
	d.malformed[i] = true
}

// Occurrences counts the references to rel across the document's records.
// A record referencing rel several times contributes each reference.
func (d *Document) Occurrences(loc Locator, rel string) int {
	token := loc.Token(rel)
	count := 0
	for i, line := range d.lines {
		if d.malformed[i] {
			continue
		}
		count += strings.Count(line, token)
	}
	return count
}

// ReplaceAll rewrites every reference to oldRel into newRel and returns the
// number of references rewritten. Malformed records are left untouched.
// A zero return means the document is unchanged.
func (d *Document) ReplaceAll(loc Locator, oldRel, newRel string) int {
	oldToken := loc.Token(oldRel)
	newToken := loc.Token(newRel)

	count := 0
	for i, line := range d.lines {
		if d.malformed[i] {
			continue
		}
		n := strings.Count(line, oldToken)
		if n == 0 {
			continue
		}
		d.lines[i] = strings.ReplaceAll(line, oldToken, newToken)
		count += n
	}
	return count
}

// ReplaceRaw substitutes an arbitrary substring in every record, without
// quoting, and returns the number of substitutions. Used for rewriting
// absolute URLs after a download. Malformed records are left untouched.
func (d *Document) ReplaceRaw(old, new string) int {
	count := 0
	for i, line := range d.lines {
		if d.malformed[i] {
			continue
		}
		n := strings.Count(line, old)
		if n == 0 {
			continue
		}
		d.lines[i] = strings.ReplaceAll(line, old, new)
		count += n
	}
	return count
}

// Content renders the document back to its on-disk form.
func (d *Document) Content() string {
	out := strings.Join(d.lines, "\n")
	if d.trailingNewline && out != "" {
		out += "\n"
	}
	return out
}

// Save writes the document back to its path via a temporary file in the
// same directory, renamed into place once fully written. Readers never see
// a partially written database.
func (d *Document) Save() error {
	return writeFileAtomic(d.Path, []byte(d.Content()))
}

// writeFileAtomic writes data to path through a sibling temp file and an
// atomic rename, preserving an existing file's permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Chmod(mode); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	success = true
	return nil
}
