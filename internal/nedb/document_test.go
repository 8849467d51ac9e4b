package nedb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDocumentOccurrences(t *testing.T) {
	doc := parseDocument("", "data/scenes.db", strings.Join([]string{
		`{"name":"A","img":"assets/map.png"}`,
		`{"name":"B","img":"assets/map.png.webp"}`,
		`{"name":"C","tiles":[{"img":"assets/map.png"},{"img":"assets/map.png"}]}`,
	}, "\n"))

	// Matching is on the whole quoted value: map.png must not match inside
	// map.png.webp, and a record with several references counts each one.
	if got := doc.Occurrences(QuotedLocator{}, "assets/map.png"); got != 3 {
		t.Errorf("Occurrences(map.png) = %d, want 3", got)
	}
	if got := doc.Occurrences(QuotedLocator{}, "assets/map.png.webp"); got != 1 {
		t.Errorf("Occurrences(map.png.webp) = %d, want 1", got)
	}
	if got := doc.Occurrences(QuotedLocator{}, "assets/map"); got != 0 {
		t.Errorf("Occurrences(partial path) = %d, want 0", got)
	}
}

func TestDocumentReplaceAll(t *testing.T) {
	doc := parseDocument("", "data/scenes.db", strings.Join([]string{
		`{"z":"last","img":"assets/big map.png","a":"first"}`,
		`{"img":"assets/big map.png.webp"}`,
		`{"note":"mentions assets/big map.png in prose"}`,
	}, "\n")+"\n")

	count := doc.ReplaceAll(QuotedLocator{}, "assets/big map.png", "assets/big_map.png")
	if count != 1 {
		t.Fatalf("ReplaceAll() = %d references, want 1", count)
	}

	want := strings.Join([]string{
		`{"z":"last","img":"assets/big_map.png","a":"first"}`,
		`{"img":"assets/big map.png.webp"}`,
		`{"note":"mentions assets/big map.png in prose"}`,
	}, "\n") + "\n"
	if got := doc.Content(); got != want {
		t.Errorf("Content() = %q, want %q", got, want)
	}
}

func TestDocumentReplaceAllCountsReferences(t *testing.T) {
	doc := parseDocument("", "data/scenes.db",
		`{"img":"assets/a.png","token":{"img":"assets/a.png"}}`+"\n")

	if got := doc.Occurrences(QuotedLocator{}, "assets/a.png"); got != 2 {
		t.Errorf("Occurrences() = %d, want 2", got)
	}
	if got := doc.ReplaceAll(QuotedLocator{}, "assets/a.png", "assets/b.png"); got != 2 {
		t.Errorf("ReplaceAll() = %d references, want 2", got)
	}
	want := `{"img":"assets/b.png","token":{"img":"assets/b.png"}}` + "\n"
	if got := doc.Content(); got != want {
		t.Errorf("Content() = %q, want %q", got, want)
	}
}

func TestDocumentMalformedLinesAreNeverRewritten(t *testing.T) {
	doc := parseDocument("", "data/scenes.db", strings.Join([]string{
		`{"img":"assets/a.png"}`,
		`{broken json "assets/a.png"`,
	}, "\n")+"\n")
	doc.MarkMalformed(1)

	if got := doc.Occurrences(QuotedLocator{}, "assets/a.png"); got != 1 {
		t.Errorf("Occurrences() = %d, want 1", got)
	}
	if got := doc.ReplaceAll(QuotedLocator{}, "assets/a.png", "assets/b.png"); got != 1 {
		t.Errorf("ReplaceAll() = %d references, want 1", got)
	}
	if got := doc.ReplaceRaw("assets/a.png", "assets/c.png"); got != 0 {
		t.Errorf("ReplaceRaw() = %d substitutions, want 0", got)
	}

	want := strings.Join([]string{
		`{"img":"assets/b.png"}`,
		`{broken json "assets/a.png"`,
	}, "\n") + "\n"
	if got := doc.Content(); got != want {
		t.Errorf("Content() = %q, want %q", got, want)
	}
}

func TestDocumentContentPreservesShape(t *testing.T) {
	t.Run("trailing newline kept", func(t *testing.T) {
		doc := parseDocument("", "", "{\"a\":1}\n")
		if got := doc.Content(); got != "{\"a\":1}\n" {
			t.Errorf("Content() = %q", got)
		}
	})

	t.Run("missing trailing newline kept", func(t *testing.T) {
		doc := parseDocument("", "", "{\"a\":1}")
		if got := doc.Content(); got != "{\"a\":1}" {
			t.Errorf("Content() = %q", got)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		doc := parseDocument("", "", "")
		if got := doc.Content(); got != "" {
			t.Errorf("Content() = %q, want empty", got)
		}
		if got := len(doc.Lines()); got != 0 {
			t.Errorf("Lines() = %d entries, want 0", got)
		}
	})
}

func TestDocumentSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actors.db")
	if err := os.WriteFile(path, []byte(`{"img":"a.png"}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadDocument(path, "data/actors.db")
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	doc.ReplaceAll(QuotedLocator{}, "a.png", "b.png")
	if err := doc.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"img":"b.png"}`+"\n"; got != want {
		t.Errorf("saved content = %q, want %q", got, want)
	}

	// Permissions of the original file survive the rewrite.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("saved mode = %v, want 0600", got)
	}

	// No staging leftovers.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
