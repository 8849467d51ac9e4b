package scan

import (
	"testing"

	"fwt-go/internal/fwt"
	"fwt-go/internal/testutil"
)

func scanFixture(t *testing.T, f *testutil.ProjectFixture, ext, exclude []string) []fwt.Asset {
	t.Helper()

	w := NewWalker(f.Resolve(), fwt.NopLogger{})
	assets, err := w.Scan(ext, exclude)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return assets
}

func rels(assets []fwt.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Rel
	}
	return out
}

func TestScanOrder(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteFile("b/two.png", "2")
	f.WriteFile("a/one.png", "1")
	f.WriteFile("a/three.png", "3")

	got := rels(scanFixture(t, f, []string{"png"}, nil))
	want := []string{"a/one.png", "a/three.png", "b/two.png"}
	if len(got) != len(want) {
		t.Fatalf("Scan() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan()[%d] = %q, want %q (lexicographic order)", i, got[i], want[i])
		}
	}
}

func TestScanExtensionFilter(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteFile("art/a.png", "1")
	f.WriteFile("art/b.PNG", "2")
	f.WriteFile("art/c.webp", "3")
	f.WriteFile("art/notes.txt", "4")

	t.Run("case-insensitive with or without dot", func(t *testing.T) {
		got := rels(scanFixture(t, f, []string{".png", "WEBP"}, nil))
		want := map[string]bool{"art/a.png": true, "art/b.PNG": true, "art/c.webp": true}
		if len(got) != len(want) {
			t.Fatalf("Scan() = %v", got)
		}
		for _, rel := range got {
			if !want[rel] {
				t.Errorf("Scan() included %q", rel)
			}
		}
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		got := scanFixture(t, f, nil, nil)
		// Four files plus the manifest.
		if len(got) != 5 {
			t.Errorf("Scan() = %d assets, want 5: %v", len(got), rels(got))
		}
	})
}

func TestScanExcludeDirs(t *testing.T) {
	f := testutil.NewProject(t)
	f.WriteFile("art/keep.png", "1")
	f.WriteFile("trash/session.0/old.png", "2")
	f.WriteFile("data/scenes.db", "{}")
	f.WriteFile("nested/trash/also.png", "3")

	t.Run("base name globs prune anywhere", func(t *testing.T) {
		got := rels(scanFixture(t, f, []string{"png"}, []string{"trash"}))
		if len(got) != 1 || got[0] != "art/keep.png" {
			t.Errorf("Scan() = %v, want only art/keep.png", got)
		}
	})

	t.Run("path globs match project-relative paths", func(t *testing.T) {
		got := rels(scanFixture(t, f, []string{"png"}, []string{"nested/trash"}))
		want := map[string]bool{"art/keep.png": true, "trash/session.0/old.png": true}
		if len(got) != len(want) {
			t.Fatalf("Scan() = %v", got)
		}
		for _, rel := range got {
			if !want[rel] {
				t.Errorf("Scan() included %q", rel)
			}
		}
	})
}
