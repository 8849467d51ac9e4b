package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fwt-go/internal/fwt"
)

// SessionStore allocates one trash staging directory per invocation under
// <project>/trash. Session directories are named session.N; the next index
// is derived from the existing directory listing at allocation time, so no
// counter state is persisted and indexes are never reused.
type SessionStore struct {
	root    string
	current string
}

var _ fwt.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a store rooted at the given trash directory.
// Nothing is created on disk until Current is first called.
func NewSessionStore(trashRoot string) *SessionStore {
	return &SessionStore{root: trashRoot}
}

// Current returns this invocation's session directory, allocating and
// creating it on first use.
func (s *SessionStore) Current() (string, error) {
	if s.current != "" {
		return s.current, nil
	}

	n, err := NextIndex(s.root)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, fmt.Sprintf("session.%d", n))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating trash session: %w", err)
	}

	s.current = dir
	return dir, nil
}

// Name returns the allocated session's name, or "" if this invocation has
// not needed a session yet.
func (s *SessionStore) Name() string {
	if s.current == "" {
		return ""
	}
	return filepath.Base(s.current)
}

// NextIndex returns one past the highest session index present under root.
// A missing or empty trash directory yields 0.
func NextIndex(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading trash directory: %w", err)
	}

	next := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		suffix, ok := strings.CutPrefix(e.Name(), "session.")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}
