// Package testutil provides fixtures for tests that need a real project
// directory on disk.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fwt-go/internal/project"
)

// ProjectFixture is a throwaway world directory under t.TempDir. Paths are
// given in forward-slash form relative to the world root, matching the
// stored reference form (the fixture's data root is the world root).
type ProjectFixture struct {
	t    *testing.T
	Root string
}

// NewProject creates a world directory with a minimal manifest.
func NewProject(t *testing.T) *ProjectFixture {
	t.Helper()

	root := filepath.Join(t.TempDir(), "testworld")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("creating fixture root: %v", err)
	}

	f := &ProjectFixture{t: t, Root: root}
	f.WriteFile("world.json", `{"id":"testworld","title":"Test World"}`)
	return f
}

// WriteFile writes content at the given root-relative path, creating parent
// directories as needed.
func (f *ProjectFixture) WriteFile(rel, content string) {
	f.t.Helper()

	abs := f.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		f.t.Fatalf("creating %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		f.t.Fatalf("writing %s: %v", rel, err)
	}
}

// WriteDB writes a newline-delimited JSON database from the given records.
func (f *ProjectFixture) WriteDB(rel string, records ...string) {
	f.t.Helper()
	f.WriteFile(rel, strings.Join(records, "\n")+"\n")
}

// Abs converts a root-relative path to an absolute one.
func (f *ProjectFixture) Abs(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// Read returns the content of a root-relative file.
func (f *ProjectFixture) Read(rel string) string {
	f.t.Helper()

	data, err := os.ReadFile(f.Abs(rel))
	if err != nil {
		f.t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// Exists reports whether a root-relative path exists.
func (f *ProjectFixture) Exists(rel string) bool {
	_, err := os.Stat(f.Abs(rel))
	return err == nil
}

// Resolve resolves the fixture into a Project. The data root falls back to
// the world root, so stored references are root-relative.
func (f *ProjectFixture) Resolve() *project.Project {
	f.t.Helper()

	p, err := project.Resolve(f.Root, "")
	if err != nil {
		f.t.Fatalf("resolving fixture project: %v", err)
	}
	return p
}
