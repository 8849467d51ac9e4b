// Package dedup finds groups of assets that are duplicates of one another,
// either by identical file content or by sharing a directory and base name
// with different extensions, and picks the member to keep in each group.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"

	"fwt-go/internal/fwt"
)

// Detector groups assets by a configurable key and selects each group's
// survivor using an ordered list of preference patterns.
type Detector struct {
	key           func(fwt.Asset) (string, error)
	sizePrefilter bool
	preferred     []*regexp.Regexp
	logger        fwt.Logger
}

var _ fwt.Detector = (*Detector)(nil)

// ByContent creates a detector that groups assets whose bytes are identical.
// File sizes are compared first so only same-sized files are hashed.
func ByContent(preferred []*regexp.Regexp, logger fwt.Logger) *Detector {
	return &Detector{key: contentKey, sizePrefilter: true, preferred: preferred, logger: logger}
}

// ByName creates a detector that groups assets sharing a directory and stem,
// differing only in extension.
func ByName(preferred []*regexp.Regexp, logger fwt.Logger) *Detector {
	return &Detector{key: nameKey, preferred: preferred, logger: logger}
}

// CompilePreferred compiles preference patterns, expanding the
// <project_dir> placeholder to the given project-relative prefix.
func CompilePreferred(patterns []string, projectDir string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expanded := regexp.MustCompile(`<project_dir>`).ReplaceAllString(p, regexp.QuoteMeta(projectDir))
		re, err := regexp.Compile(expanded)
		if err != nil {
			return nil, fmt.Errorf("preferred pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Detect groups the assets and returns every group with two or more
// members, sorted by group key. Member order within a group follows the
// input (scan) order.
func (d *Detector) Detect(assets []fwt.Asset) ([]fwt.DuplicateGroup, error) {
	byKey := make(map[string][]fwt.Asset)
	keys := make([]string, 0)

	grouped := d.groupable(assets)
	for _, a := range grouped {
		key, err := d.key(a)
		if err != nil {
			return nil, err
		}
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], a)
	}
	sort.Strings(keys)

	var groups []fwt.DuplicateGroup
	for _, key := range keys {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}

		survivor := d.survivor(members)
		group := fwt.DuplicateGroup{Key: key, Survivor: survivor}
		for _, m := range members {
			if m.Rel != survivor.Rel {
				group.Redundant = append(group.Redundant, m)
			}
		}
		groups = append(groups, group)
		d.logger.Debug("duplicate group", "key", key, "members", len(members), "survivor", survivor.Rel)
	}
	return groups, nil
}

// groupable pre-filters assets so expensive keys are only computed for
// candidates that can possibly collide. For content grouping that means
// assets sharing a file size; name grouping needs no pre-filter.
func (d *Detector) groupable(assets []fwt.Asset) []fwt.Asset {
	if !d.sizePrefilter {
		return assets
	}

	bySize := make(map[int64][]fwt.Asset)
	order := make([]int64, 0)
	for _, a := range assets {
		info, err := os.Stat(a.Abs)
		if err != nil {
			d.logger.Warn("skipping unreadable asset", "path", a.Rel, "error", err)
			continue
		}
		if _, ok := bySize[info.Size()]; !ok {
			order = append(order, info.Size())
		}
		bySize[info.Size()] = append(bySize[info.Size()], a)
	}

	var candidates []fwt.Asset
	for _, size := range order {
		if len(bySize[size]) >= 2 {
			candidates = append(candidates, bySize[size]...)
		}
	}
	return candidates
}

// survivor picks the member to keep: the first preference pattern that
// matches any member wins, and among its matches the earliest in scan
// order is chosen. With no matching pattern the first member survives.
func (d *Detector) survivor(members []fwt.Asset) fwt.Asset {
	for _, re := range d.preferred {
		for _, m := range members {
			if re.MatchString(m.Rel) || re.MatchString(m.Abs) {
				return m
			}
		}
	}
	return members[0]
}

func contentKey(a fwt.Asset) (string, error) {
	f, err := os.Open(a.Abs)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", a.Rel, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", a.Rel, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func nameKey(a fwt.Asset) (string, error) {
	return path.Dir(a.Rel) + "/" + a.Stem(), nil
}
