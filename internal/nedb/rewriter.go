package nedb

import (
	"fmt"
	"os"
	"path/filepath"

	"fwt-go/internal/fwt"
)

// Rewriter applies path rewrites across a project's database index. Before a
// document's first modification in an invocation, its on-disk content is
// snapshotted into the trash session as <path>.bak; later rewrites of the
// same document in the same invocation reuse that first snapshot.
type Rewriter struct {
	index    *Index
	sessions fwt.SessionStore
	logger   fwt.Logger

	backedUp map[string]bool
}

var _ fwt.Rewriter = (*Rewriter)(nil)

// NewRewriter creates a Rewriter over a loaded index.
func NewRewriter(index *Index, sessions fwt.SessionStore, logger fwt.Logger) *Rewriter {
	return &Rewriter{
		index:    index,
		sessions: sessions,
		logger:   logger,
		backedUp: make(map[string]bool),
	}
}

// Apply rewrites every reference to the mapping's source path into its
// destination. A mapping with no destination rewrites nothing: its
// references are left in place deliberately, pointing at the trashed file.
func (r *Rewriter) Apply(m fwt.Mapping) (fwt.RewriteReport, error) {
	if m.Dest == "" {
		return fwt.RewriteReport{}, nil
	}
	return r.replace(func(doc *Document) int {
		return doc.ReplaceAll(r.index.locator, m.Source, m.Dest)
	})
}

// ApplyRaw substitutes an arbitrary unquoted substring across all documents,
// with the same backup guarantees as Apply. Used to rewrite remote URLs to
// local paths after a download.
func (r *Rewriter) ApplyRaw(old, new string) (fwt.RewriteReport, error) {
	return r.replace(func(doc *Document) int {
		return doc.ReplaceRaw(old, new)
	})
}

func (r *Rewriter) replace(apply func(*Document) int) (fwt.RewriteReport, error) {
	var report fwt.RewriteReport
	for _, doc := range r.index.Documents() {
		// Snapshot the on-disk bytes before mutating, so a first-touch
		// backup reflects the pre-invocation state. The disk copy only
		// changes once Save succeeds.
		var before []byte
		if !r.backedUp[doc.Path] {
			data, err := os.ReadFile(doc.Path)
			if err != nil {
				return report, fmt.Errorf("reading %s for backup: %w", doc.Rel, err)
			}
			before = data
		}

		count := apply(doc)
		if count == 0 {
			continue
		}

		if before != nil {
			if err := r.backup(doc, before); err != nil {
				return report, err
			}
		}
		if err := doc.Save(); err != nil {
			return report, err
		}

		report.Documents++
		report.Occurrences += count
		r.logger.Debug("database rewritten", "db", doc.Rel, "records", count)
	}
	return report, nil
}

// backup writes the document's pre-invocation content into the trash session
// as <path>.bak. Taken at most once per document per invocation; later
// rewrites of the same document keep the first snapshot.
func (r *Rewriter) backup(doc *Document, data []byte) error {
	session, err := r.sessions.Current()
	if err != nil {
		return err
	}

	backup := filepath.Join(session, filepath.FromSlash(doc.Rel)+".bak")
	if err := os.MkdirAll(filepath.Dir(backup), 0755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	if err := writeFileAtomic(backup, data); err != nil {
		return fmt.Errorf("backing up %s: %w", doc.Rel, err)
	}

	r.backedUp[doc.Path] = true
	r.logger.Debug("database backed up", "db", doc.Rel, "backup", backup)
	return nil
}
