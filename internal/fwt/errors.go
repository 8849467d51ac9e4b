package fwt

import (
	"fmt"
	"strings"
)

// ParseError reports a database document that could not be parsed.
// The document is skipped and the run continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing database %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError reports a planned destination that already exists as a
// distinct asset. The mapping is aborted before any mutation.
type ConflictError struct {
	Source string
	Dest   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination %s already exists (moving %s)", e.Dest, e.Source)
}

// CollisionError reports two or more planned mappings that collide on the
// same destination. The whole batch is rejected before execution begins.
type CollisionError struct {
	Dest    string
	Sources []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("mappings collide on destination %s: %s",
		e.Dest, strings.Join(e.Sources, ", "))
}

// MoveError reports a filesystem move that failed. The source file is left
// in place; the mapping's database rewrite is not rolled back.
type MoveError struct {
	Source string
	Dest   string
	Err    error
}

func (e *MoveError) Error() string {
	if e.Dest == "" {
		return fmt.Sprintf("trashing %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("moving %s to %s: %v", e.Source, e.Dest, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }
