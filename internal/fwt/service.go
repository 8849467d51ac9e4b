package fwt

import (
	"fmt"
	"strings"
)

// Service coordinates scanning, planning and plan execution for one project
// invocation. Each command reduces to the same flow: build a mapping list,
// validate it as a whole, then execute it mapping by mapping — database
// rewrite first, file operation second.
type Service struct {
	scanner  Scanner
	rewriter Rewriter
	mover    Mover
	sessions SessionStore
	logger   Logger
}

// NewService creates a Service with the provided dependencies.
func NewService(scanner Scanner, rewriter Rewriter, mover Mover, sessions SessionStore, logger Logger) *Service {
	return &Service{
		scanner:  scanner,
		rewriter: rewriter,
		mover:    mover,
		sessions: sessions,
		logger:   logger,
	}
}

// Dedup scans for duplicate assets and removes the redundant ones: every
// redundant group member is staged to trash and its database occurrences
// are rewritten to the survivor's path. Survivors are untouched.
func (s *Service) Dedup(detector Detector, extensions, excludeDirs []string) (*BatchReport, error) {
	assets, err := s.scanner.Scan(extensions, excludeDirs)
	if err != nil {
		return nil, fmt.Errorf("scanning assets: %w", err)
	}

	groups, err := detector.Detect(assets)
	if err != nil {
		return nil, fmt.Errorf("detecting duplicates: %w", err)
	}
	s.logger.Info("duplicate groups found", "groups", len(groups))

	var mappings []Mapping
	for _, g := range groups {
		for _, r := range g.Redundant {
			mappings = append(mappings, Mapping{
				Source: r.Rel,
				Dest:   g.Survivor.Rel,
				Trash:  true,
			})
		}
	}
	return s.Execute(mappings)
}

// RenameAll scans for assets, derives new names from the planner's pattern
// list and executes the resulting batch.
func (s *Service) RenameAll(planner Planner, extensions, excludeDirs []string) (*BatchReport, error) {
	assets, err := s.scanner.Scan(extensions, excludeDirs)
	if err != nil {
		return nil, fmt.Errorf("scanning assets: %w", err)
	}

	mappings, err := planner.Plan(assets)
	if err != nil {
		return nil, fmt.Errorf("planning renames: %w", err)
	}
	return s.Execute(mappings)
}

// Rename moves a single asset to a new path, updating database occurrences.
// With keepSrc the file is copied and the original left in place.
func (s *Service) Rename(srcRel, destRel string, keepSrc bool) (*BatchReport, error) {
	return s.Execute([]Mapping{{Source: srcRel, Dest: destRel, Copy: keepSrc}})
}

// Replace swaps the file behind target with source: the current target file
// is staged to trash, then the source file moves into its place. Database
// occurrences of the source path are rewritten to the target path;
// occurrences of the target path stay valid because the path is preserved.
func (s *Service) Replace(targetRel, srcRel string) (*BatchReport, error) {
	exists, err := s.mover.Exists(targetRel)
	if err != nil {
		return nil, fmt.Errorf("checking target: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("replace target does not exist: %s", targetRel)
	}

	return s.Execute([]Mapping{
		{Source: targetRel, Trash: true},
		{Source: srcRel, Dest: targetRel},
	})
}

// Pull copies assets referenced by this project's databases but stored
// under another project's directory into this project, rewriting every
// reference to the new location. Source files are left in place.
func (s *Service) Pull(refs ReferenceFinder, fromPrefix, toPrefix string) (*BatchReport, error) {
	fromPrefix = strings.TrimSuffix(fromPrefix, "/")
	toPrefix = strings.TrimSuffix(toPrefix, "/")

	var mappings []Mapping
	for _, p := range refs.PathsUnder(fromPrefix + "/") {
		mappings = append(mappings, Mapping{
			Source: p,
			Dest:   toPrefix + strings.TrimPrefix(p, fromPrefix),
			Copy:   true,
		})
	}
	s.logger.Info("remote assets found", "from", fromPrefix, "count", len(mappings))
	return s.Execute(mappings)
}

// Execute validates the batch and runs it in plan order. Validation failures
// (mapping-vs-mapping destination collisions) reject the whole batch before
// anything is touched. Per-mapping failures are recorded in the report and
// execution continues with the remaining mappings.
func (s *Service) Execute(mappings []Mapping) (*BatchReport, error) {
	if err := validateCollisions(mappings); err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, m := range mappings {
		res := MappingResult{Mapping: m}
		// The precheck runs immediately before this mapping's first
		// mutation: a mapping that cannot apply performs no rewrite and
		// no move. Checking here rather than up front lets an earlier
		// mapping free a destination (replace trashes the target before
		// the source moves into its place).
		if err := s.precheck(m); err != nil {
			res.Err = err
		} else {
			res.Rewrite, res.Err = s.rewriter.Apply(m)
			if res.Err == nil {
				res.Err = s.moveFile(m)
			}
		}

		if res.Err != nil {
			s.logger.Error("mapping failed", "source", m.Source, "dest", m.Dest, "error", res.Err)
		} else {
			s.logger.Info("mapping applied",
				"source", m.Source, "dest", m.Dest, "trash", m.Trash,
				"documents", res.Rewrite.Documents, "occurrences", res.Rewrite.Occurrences)
		}
		report.Results = append(report.Results, res)
	}

	report.Session = s.sessions.Name()
	return report, nil
}

// precheck verifies a mapping's invariants without mutating anything:
// the source must resolve to an existing asset and, for moves, the
// destination must not already be a distinct asset.
func (s *Service) precheck(m Mapping) error {
	srcExists, err := s.mover.Exists(m.Source)
	if err != nil {
		return fmt.Errorf("checking source %s: %w", m.Source, err)
	}
	if !srcExists {
		return fmt.Errorf("source does not exist: %s", m.Source)
	}

	if m.Trash || m.Dest == "" || m.Dest == m.Source {
		return nil
	}

	destExists, err := s.mover.Exists(m.Dest)
	if err != nil {
		return fmt.Errorf("checking destination %s: %w", m.Dest, err)
	}
	if destExists && !s.mover.SameFile(m.Source, m.Dest) {
		return &ConflictError{Source: m.Source, Dest: m.Dest}
	}
	return nil
}

func (s *Service) moveFile(m Mapping) error {
	switch {
	case m.Trash:
		if err := s.mover.Trash(m.Source); err != nil {
			return &MoveError{Source: m.Source, Err: err}
		}
	case m.Copy:
		if err := s.mover.Copy(m.Source, m.Dest); err != nil {
			return &MoveError{Source: m.Source, Dest: m.Dest, Err: err}
		}
	default:
		if err := s.mover.Relocate(m.Source, m.Dest); err != nil {
			return &MoveError{Source: m.Source, Dest: m.Dest, Err: err}
		}
	}
	return nil
}

// validateCollisions rejects a batch in which two mappings would move
// distinct sources to the same destination.
func validateCollisions(mappings []Mapping) error {
	destSources := make(map[string][]string)
	for _, m := range mappings {
		if m.Trash || m.Dest == "" {
			continue
		}
		destSources[m.Dest] = append(destSources[m.Dest], m.Source)
	}
	for dest, sources := range destSources {
		if len(sources) > 1 {
			return &CollisionError{Dest: dest, Sources: sources}
		}
	}
	return nil
}
