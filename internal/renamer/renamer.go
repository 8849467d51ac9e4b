// Package renamer plans bulk path rewrites from removal and substitution
// patterns, applied independently to each path segment below the project
// directory.
package renamer

import (
	"fmt"
	"regexp"
	"strings"

	"fwt-go/internal/fwt"
)

// Planner turns a set of assets into rename mappings by applying compiled
// removal and replacement rules to every path segment. Segments naming the
// project directory itself are never touched.
type Planner struct {
	prefix       string
	removals     []*regexp.Regexp
	replacements []Replacement
	lower        bool
	logger       fwt.Logger
}

var _ fwt.Planner = (*Planner)(nil)

// A Replacement is a compiled find pattern and its substitution text.
type Replacement struct {
	Find *regexp.Regexp
	With string
}

// NewPlanner compiles the rules once. prefix is the project directory's
// path relative to the data root ("." when they coincide); remove entries
// are plain regular expressions, replace entries use the /find/replacement/
// form accepted by ParseReplace.
func NewPlanner(prefix string, remove, replace []string, lower bool, logger fwt.Logger) (*Planner, error) {
	p := &Planner{prefix: prefix, lower: lower, logger: logger}

	for _, pattern := range remove {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("remove pattern %q: %w", pattern, err)
		}
		p.removals = append(p.removals, re)
	}
	for _, pattern := range replace {
		r, err := ParseReplace(pattern)
		if err != nil {
			return nil, err
		}
		p.replacements = append(p.replacements, r)
	}
	return p, nil
}

// ParseReplace parses a /find/replacement/ pattern. Both parts may contain
// slashes escaped as \/; the find part is a regular expression and the
// replacement may reference its capture groups.
func ParseReplace(pattern string) (Replacement, error) {
	parts, err := splitUnescaped(pattern)
	if err != nil {
		return Replacement{}, fmt.Errorf("replace pattern %q: %w", pattern, err)
	}

	find, err := regexp.Compile(parts[0])
	if err != nil {
		return Replacement{}, fmt.Errorf("replace pattern %q: %w", pattern, err)
	}
	return Replacement{Find: find, With: parts[1]}, nil
}

// splitUnescaped splits /find/replacement/ on slashes not preceded by a
// backslash and unescapes \/ sequences in the resulting parts.
func splitUnescaped(pattern string) ([2]string, error) {
	var parts [2]string
	if len(pattern) < 3 || pattern[0] != '/' {
		return parts, fmt.Errorf("want /find/replacement/ form")
	}

	fields := make([]string, 0, 2)
	var current strings.Builder
	escaped := false
	for _, r := range pattern[1:] {
		switch {
		case escaped:
			if r != '/' {
				current.WriteByte('\\')
			}
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped || current.Len() != 0 || len(fields) != 2 {
		return parts, fmt.Errorf("want /find/replacement/ form")
	}

	parts[0], parts[1] = fields[0], fields[1]
	return parts, nil
}

// Plan returns a mapping for every asset whose transformed path differs
// from its current one. Assets the rules leave unchanged produce nothing.
func (p *Planner) Plan(assets []fwt.Asset) ([]fwt.Mapping, error) {
	var mappings []fwt.Mapping
	for _, a := range assets {
		dest := p.transform(a.Rel)
		if dest == a.Rel {
			continue
		}
		mappings = append(mappings, fwt.Mapping{Source: a.Rel, Dest: dest})
		p.logger.Debug("rename planned", "source", a.Rel, "dest", dest)
	}
	return mappings, nil
}

// transform rewrites each path segment below the project directory.
func (p *Planner) transform(rel string) string {
	prefix := ""
	rest := rel
	if p.prefix != "" && p.prefix != "." {
		marker := p.prefix + "/"
		if !strings.HasPrefix(rel, marker) {
			return rel
		}
		prefix = marker
		rest = rel[len(marker):]
	}

	segments := strings.Split(rest, "/")
	for i, seg := range segments {
		for _, re := range p.removals {
			seg = re.ReplaceAllString(seg, "")
		}
		for _, r := range p.replacements {
			seg = r.Find.ReplaceAllString(seg, r.With)
		}
		if p.lower {
			seg = strings.ToLower(seg)
		}
		segments[i] = seg
	}
	return prefix + strings.Join(segments, "/")
}
