package trash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"fwt-go/internal/fwt"
)

// Mover performs single-file relocations with stage-then-move semantics:
// either the file ends at the destination or it remains unchanged at the
// source. Relative paths are resolved against the data root; trashed files
// keep their project-relative layout under the current session directory.
type Mover struct {
	dataRoot    string
	projectRoot string
	sessions    fwt.SessionStore
	logger      fwt.Logger
}

var _ fwt.Mover = (*Mover)(nil)

// NewMover creates a Mover for a project.
func NewMover(dataRoot, projectRoot string, sessions fwt.SessionStore, logger fwt.Logger) *Mover {
	return &Mover{
		dataRoot:    dataRoot,
		projectRoot: projectRoot,
		sessions:    sessions,
		logger:      logger,
	}
}

func (m *Mover) abs(rel string) string {
	return filepath.Join(m.dataRoot, filepath.FromSlash(rel))
}

// Exists reports whether rel resolves to an existing file.
func (m *Mover) Exists(rel string) (bool, error) {
	_, err := os.Stat(m.abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
	return true, nil
}

// SameFile reports whether two relative paths resolve to the same file.
func (m *Mover) SameFile(aRel, bRel string) bool {
	ai, err := os.Stat(m.abs(aRel))
	if err != nil {
		return false
	}
	bi, err := os.Stat(m.abs(bRel))
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Relocate moves the file at srcRel to destRel. The destination must not
// already exist as a distinct file.
func (m *Mover) Relocate(srcRel, destRel string) error {
	src, dest := m.abs(srcRel), m.abs(destRel)

	if _, err := os.Stat(dest); err == nil {
		if m.SameFile(srcRel, destRel) {
			m.logger.Debug("relocate is a no-op, same file", "source", srcRel)
			return nil
		}
		return &fwt.ConflictError{Source: srcRel, Dest: destRel}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	if err := m.move(src, dest); err != nil {
		return err
	}

	m.logger.Debug("relocated", "source", srcRel, "dest", destRel)
	return nil
}

// Copy copies the file at srcRel to destRel, leaving the source untouched.
func (m *Mover) Copy(srcRel, destRel string) error {
	src, dest := m.abs(srcRel), m.abs(destRel)

	if _, err := os.Stat(dest); err == nil {
		if m.SameFile(srcRel, destRel) {
			return nil
		}
		return &fwt.ConflictError{Source: srcRel, Dest: destRel}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	if err := m.copyFile(src, dest); err != nil {
		return err
	}

	m.logger.Debug("copied", "source", srcRel, "dest", destRel)
	return nil
}

// Trash moves the file at srcRel into the current session, preserving its
// path relative to the project root.
func (m *Mover) Trash(srcRel string) error {
	session, err := m.sessions.Current()
	if err != nil {
		return err
	}

	src := m.abs(srcRel)
	rel, err := filepath.Rel(m.projectRoot, src)
	if err != nil || !filepath.IsLocal(rel) {
		// Outside the project: keep the data-root layout instead.
		rel = filepath.FromSlash(srcRel)
	}

	dest := filepath.Join(session, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating trash directory: %w", err)
	}
	if err := m.move(src, dest); err != nil {
		return err
	}

	m.logger.Debug("trashed", "source", srcRel, "dest", dest)
	return nil
}

// move renames src to dest, falling back to a staged copy-then-remove when
// the two paths live on different devices. On failure the source is left
// unchanged and no partial destination remains.
func (m *Mover) move(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := m.copyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dest by writing a temporary .part file alongside
// the destination and renaming it into place, so a failed copy never leaves
// a partial destination.
func (m *Mover) copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	part := dest + ".part"
	out, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(part)
		return fmt.Errorf("copying content: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("closing staging file: %w", err)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("committing staged copy: %w", err)
	}
	return nil
}
