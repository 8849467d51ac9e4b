package nedb

import (
	"path/filepath"
	"strings"
	"testing"

	"fwt-go/internal/fwt"
	"fwt-go/internal/testutil"
	"fwt-go/internal/trash"
)

func newTestRewriter(t *testing.T, f *testutil.ProjectFixture) (*Rewriter, *Index) {
	t.Helper()

	idx, err := Load(f.Resolve(), fwt.NopLogger{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sessions := trash.NewSessionStore(filepath.Join(f.Root, "trash"))
	return NewRewriter(idx, sessions, fwt.NopLogger{}), idx
}

func TestRewriterApply(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteDB("data/scenes.db",
		`{"img":"assets/big map.png"}`,
		`{"img":"assets/big map.png.webp"}`,
	)
	f.WriteDB("data/actors.db", `{"img":"assets/token.png"}`)

	r, _ := newTestRewriter(t, f)
	report, err := r.Apply(fwt.Mapping{Source: "assets/big map.png", Dest: "assets/big_map.png"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if report.Documents != 1 || report.Occurrences != 1 {
		t.Errorf("report = %+v, want 1 document, 1 occurrence", report)
	}

	got := f.Read("data/scenes.db")
	if !strings.Contains(got, `"assets/big_map.png"`) {
		t.Errorf("scenes.db not rewritten: %q", got)
	}
	if !strings.Contains(got, `"assets/big map.png.webp"`) {
		t.Errorf("longer path damaged by substring rewrite: %q", got)
	}

	// Untouched documents are not backed up and not rewritten.
	if f.Exists("trash/session.0/data/actors.db.bak") {
		t.Errorf("actors.db backed up despite no changes")
	}
	if !f.Exists("trash/session.0/data/scenes.db.bak") {
		t.Errorf("scenes.db backup missing")
	}
}

func TestRewriterSkipsMalformedRecords(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteDB("data/scenes.db",
		`{"img":"assets/a.png"}`,
		`{broken record "assets/a.png"`,
	)

	r, idx := newTestRewriter(t, f)
	if got := len(idx.Malformed); got != 1 {
		t.Fatalf("Malformed = %d entries, want 1", got)
	}

	report, err := r.Apply(fwt.Mapping{Source: "assets/a.png", Dest: "assets/b.png"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Occurrences != 1 {
		t.Errorf("report = %+v, want 1 occurrence", report)
	}

	got := f.Read("data/scenes.db")
	if !strings.Contains(got, `{"img":"assets/b.png"}`) {
		t.Errorf("valid record not rewritten: %q", got)
	}
	if !strings.Contains(got, `{broken record "assets/a.png"`) {
		t.Errorf("malformed record was mutated: %q", got)
	}
}

func TestRewriterNoDestinationIsNoOp(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteDB("data/scenes.db", `{"img":"assets/map.png"}`)

	r, _ := newTestRewriter(t, f)
	report, err := r.Apply(fwt.Mapping{Source: "assets/map.png", Trash: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if report.Documents != 0 || report.Occurrences != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	if got := f.Read("data/scenes.db"); !strings.Contains(got, `"assets/map.png"`) {
		t.Errorf("references removed, want them left dangling: %q", got)
	}
	if f.Exists("trash/session.0") {
		t.Errorf("session allocated for a no-op rewrite")
	}
}

func TestRewriterBackupFirstTouchWins(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteDB("data/scenes.db", `{"a":"one.png","b":"two.png"}`)

	r, _ := newTestRewriter(t, f)
	if _, err := r.Apply(fwt.Mapping{Source: "one.png", Dest: "uno.png"}); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if _, err := r.Apply(fwt.Mapping{Source: "two.png", Dest: "dos.png"}); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	// The backup reflects the state before the first rewrite of the
	// invocation, not the state between the two rewrites.
	backup := f.Read("trash/session.0/data/scenes.db.bak")
	if !strings.Contains(backup, `"one.png"`) || !strings.Contains(backup, `"two.png"`) {
		t.Errorf("backup = %q, want the pre-invocation content", backup)
	}

	current := f.Read("data/scenes.db")
	if !strings.Contains(current, `"uno.png"`) || !strings.Contains(current, `"dos.png"`) {
		t.Errorf("database = %q, want both rewrites applied", current)
	}
}

func TestRewriterApplyRaw(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteDB("data/scenes.db", `{"img":"https://example.com/map.png"}`)

	r, _ := newTestRewriter(t, f)
	report, err := r.ApplyRaw("https://example.com/map.png", "assets/map.png")
	if err != nil {
		t.Fatalf("ApplyRaw() error = %v", err)
	}
	if report.Occurrences != 1 {
		t.Errorf("report = %+v, want 1 occurrence", report)
	}
	if got := f.Read("data/scenes.db"); !strings.Contains(got, `"assets/map.png"`) {
		t.Errorf("URL not rewritten: %q", got)
	}
}
