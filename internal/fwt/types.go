package fwt

import (
	"path"
	"strings"
)

// Asset is a file under the project root that database documents may
// reference. Rel is the data-root-relative path in forward-slash form,
// which is exactly the representation stored inside the databases.
type Asset struct {
	Abs string
	Rel string
}

// Ext returns the asset's file extension, lowercased, including the dot.
func (a Asset) Ext() string {
	return strings.ToLower(path.Ext(a.Rel))
}

// Stem returns the data-root-relative path with the extension stripped.
// Assets sharing a stem are name-mode duplicates.
func (a Asset) Stem() string {
	return strings.TrimSuffix(a.Rel, path.Ext(a.Rel))
}

// Mapping is one planned relocation. Database occurrences of Source are
// rewritten to Dest, and the source file is moved to Dest, copied to Dest,
// or staged to trash.
//
// Dest and Trash are independent: a dedup mapping rewrites occurrences to
// the surviving asset's path (which already exists) while the redundant
// file itself goes to trash. An empty Dest is a pure removal: occurrences
// are left dangling on purpose — the tool never deletes database records,
// the absence of the file is the signal.
type Mapping struct {
	Source string
	Dest   string
	Trash  bool
	Copy   bool
}

// DuplicateGroup is a set of assets considered equivalent under a detection
// mode. Exactly one member survives; the rest are redundant.
type DuplicateGroup struct {
	Key       string
	Survivor  Asset
	Redundant []Asset
}

// Members returns all assets in the group, survivor first.
func (g DuplicateGroup) Members() []Asset {
	return append([]Asset{g.Survivor}, g.Redundant...)
}

// RewriteReport describes the database mutations performed for one mapping.
type RewriteReport struct {
	Documents   int
	Occurrences int
}

// MappingResult is the outcome of executing a single mapping.
type MappingResult struct {
	Mapping Mapping
	Rewrite RewriteReport
	Err     error
}

// BatchReport aggregates the per-mapping results of one executed plan.
// Partial success is allowed: failed mappings are recorded here, never
// silently swallowed.
type BatchReport struct {
	Session string
	Results []MappingResult
}

// Succeeded returns the number of mappings that completed without error.
func (r *BatchReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results of mappings that did not complete.
func (r *BatchReport) Failed() []MappingResult {
	var failed []MappingResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
