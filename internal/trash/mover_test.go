package trash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fwt-go/internal/fwt"
)

func newTestMover(t *testing.T) (*Mover, string) {
	t.Helper()
	root := t.TempDir()
	sessions := NewSessionStore(filepath.Join(root, "trash"))
	return NewMover(root, root, sessions, fwt.NopLogger{}), root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

func TestMoverRelocate(t *testing.T) {
	t.Run("moves a file into a new directory", func(t *testing.T) {
		m, root := newTestMover(t)
		writeFile(t, root, "assets/map.png", "pixels")

		if err := m.Relocate("assets/map.png", "assets/maps/map.png"); err != nil {
			t.Fatalf("Relocate() error = %v", err)
		}

		if got := readFile(t, root, "assets/maps/map.png"); got != "pixels" {
			t.Errorf("destination content = %q, want %q", got, "pixels")
		}
		if _, err := os.Stat(filepath.Join(root, "assets", "map.png")); !os.IsNotExist(err) {
			t.Errorf("source still exists after relocate")
		}
	})

	t.Run("existing distinct destination is a conflict", func(t *testing.T) {
		m, root := newTestMover(t)
		writeFile(t, root, "a.png", "one")
		writeFile(t, root, "b.png", "two")

		err := m.Relocate("a.png", "b.png")
		var conflict *fwt.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("Relocate() error = %v, want ConflictError", err)
		}

		// Nothing was touched.
		if got := readFile(t, root, "a.png"); got != "one" {
			t.Errorf("source content = %q, want %q", got, "one")
		}
		if got := readFile(t, root, "b.png"); got != "two" {
			t.Errorf("destination content = %q, want %q", got, "two")
		}
	})

	t.Run("relocating a path onto itself is a no-op", func(t *testing.T) {
		m, root := newTestMover(t)
		writeFile(t, root, "a.png", "one")

		if err := m.Relocate("a.png", "a.png"); err != nil {
			t.Fatalf("Relocate() error = %v", err)
		}
		if got := readFile(t, root, "a.png"); got != "one" {
			t.Errorf("content = %q, want %q", got, "one")
		}
	})
}

func TestMoverCopy(t *testing.T) {
	m, root := newTestMover(t)
	writeFile(t, root, "assets/token.png", "pixels")

	if err := m.Copy("assets/token.png", "backup/token.png"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	if got := readFile(t, root, "assets/token.png"); got != "pixels" {
		t.Errorf("source content = %q, want %q", got, "pixels")
	}
	if got := readFile(t, root, "backup/token.png"); got != "pixels" {
		t.Errorf("copy content = %q, want %q", got, "pixels")
	}
}

func TestMoverTrash(t *testing.T) {
	m, root := newTestMover(t)
	writeFile(t, root, "assets/maps/old.png", "pixels")

	if err := m.Trash("assets/maps/old.png"); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "assets", "maps", "old.png")); !os.IsNotExist(err) {
		t.Errorf("source still exists after trash")
	}

	// The file keeps its project-relative layout under the session.
	staged := filepath.Join(root, "trash", "session.0", "assets", "maps", "old.png")
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("reading staged file: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("staged content = %q, want %q", string(data), "pixels")
	}
}

func TestMoverExists(t *testing.T) {
	m, root := newTestMover(t)
	writeFile(t, root, "a.png", "one")

	exists, err := m.Exists("a.png")
	if err != nil || !exists {
		t.Errorf("Exists(a.png) = %v, %v, want true, nil", exists, err)
	}

	exists, err = m.Exists("missing.png")
	if err != nil || exists {
		t.Errorf("Exists(missing.png) = %v, %v, want false, nil", exists, err)
	}
}

func TestMoverSameFile(t *testing.T) {
	m, root := newTestMover(t)
	writeFile(t, root, "a.png", "one")
	writeFile(t, root, "b.png", "one")

	if !m.SameFile("a.png", "a.png") {
		t.Errorf("SameFile(a, a) = false, want true")
	}
	if m.SameFile("a.png", "b.png") {
		t.Errorf("SameFile(a, b) = true, want false")
	}
	if m.SameFile("a.png", "missing.png") {
		t.Errorf("SameFile(a, missing) = true, want false")
	}
}
