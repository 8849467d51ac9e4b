package fwt

// SessionStore allocates the trash staging directory for this invocation.
// Sessions are numbered trash/session.N directories; N strictly increases
// across invocations and is never reused.
type SessionStore interface {
	// Current returns the active session directory, creating it on first use.
	Current() (string, error)

	// Name returns the allocated session's name (e.g. "session.3"), or ""
	// if no session has been created by this invocation yet.
	Name() string
}

// Mover relocates asset files identified by data-root-relative paths.
// Moves are atomic from the caller's perspective: either the file ends at
// the destination or it remains unchanged at the source.
type Mover interface {
	// Relocate moves the file at srcRel to destRel, creating intermediate
	// directories as needed. Returns a *ConflictError if the destination
	// already exists and is a distinct file.
	Relocate(srcRel, destRel string) error

	// Copy copies the file at srcRel to destRel, leaving the source in place.
	Copy(srcRel, destRel string) error

	// Trash moves the file at srcRel into the current trash session,
	// preserving its relative path under the session directory.
	Trash(srcRel string) error

	// Exists reports whether rel resolves to an existing file.
	Exists(rel string) (bool, error)

	// SameFile reports whether two relative paths resolve to the same file.
	SameFile(aRel, bRel string) bool
}

// Rewriter applies one mapping's path rewrite to every loaded database
// document, snapshotting each document once per invocation before its
// first mutation.
type Rewriter interface {
	Apply(m Mapping) (RewriteReport, error)
}

// Scanner lists candidate assets under the project root in deterministic
// lexicographic order.
type Scanner interface {
	Scan(extensions []string, excludeDirs []string) ([]Asset, error)
}

// Detector partitions assets into duplicate groups and picks each group's
// survivor. Pure computation: no side effects on the asset list or disk.
type Detector interface {
	Detect(assets []Asset) ([]DuplicateGroup, error)
}

// Planner derives rename mappings for a set of assets.
type Planner interface {
	Plan(assets []Asset) ([]Mapping, error)
}

// ReferenceFinder looks up referenced paths across the loaded databases.
type ReferenceFinder interface {
	// PathsUnder returns the distinct referenced paths beginning with
	// prefix, sorted.
	PathsUnder(prefix string) []string
}
