package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// manifestNames are the files that mark a directory as a project root.
var manifestNames = []string{"world.json", "module.json"}

// Project is a resolved Foundry world or module directory together with the
// data root its database path references are relative to.
type Project struct {
	// Root is the absolute path of the directory containing the manifest.
	Root string

	// DataRoot is the absolute directory stored path references are
	// relative to. It always contains Root; when no Foundry user data
	// directory is configured or detectable it equals Root.
	DataRoot string

	// Type is "world" or "module", from the manifest filename.
	Type string

	// Name is the project's id from the manifest ("id", or legacy "name").
	Name string

	// ManifestPath is the absolute path of the manifest file.
	ManifestPath string
}

// Resolve locates the project containing dir and determines its data root.
// dataDir, when non-empty, is used as the data root and must contain the
// project; when empty the Foundry user data directory is auto-detected and
// the project root itself is the fallback.
func Resolve(dir string, dataDir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	root, manifest, err := findManifest(abs)
	if err != nil {
		return nil, err
	}

	name, err := readManifestName(manifest)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:         root,
		Type:         strings.TrimSuffix(filepath.Base(manifest), ".json"),
		Name:         name,
		ManifestPath: manifest,
	}

	switch {
	case dataDir != "":
		dataAbs, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("resolving data dir: %w", err)
		}
		if !contains(dataAbs, root) {
			return nil, fmt.Errorf("project %s is not under data dir %s", root, dataAbs)
		}
		p.DataRoot = dataAbs
	default:
		if detected, err := DetectDataRoot(root); err == nil && contains(detected, root) {
			p.DataRoot = detected
		} else {
			p.DataRoot = root
		}
	}

	return p, nil
}

// Rel converts an absolute path under the data root to its stored
// relative-path representation (forward slashes).
func (p *Project) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(p.DataRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside the data root %s", abs, p.DataRoot)
	}
	return filepath.ToSlash(rel), nil
}

// Abs converts a stored relative path back to an absolute filesystem path.
func (p *Project) Abs(rel string) string {
	return filepath.Join(p.DataRoot, filepath.FromSlash(rel))
}

// RootRel returns the project root's path relative to the data root
// (forward slashes), or "." when they coincide.
func (p *Project) RootRel() string {
	rel, err := p.Rel(p.Root)
	if err != nil {
		return "."
	}
	return rel
}

// findManifest walks upward from dir looking for a project manifest.
func findManifest(dir string) (root, manifest string, err error) {
	for d := dir; ; d = filepath.Dir(d) {
		for _, name := range manifestNames {
			candidate := filepath.Join(d, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return d, candidate, nil
			}
		}
		if d == filepath.Dir(d) {
			return "", "", fmt.Errorf("%s is not part of a project (no world.json or module.json found)", dir)
		}
	}
}

// readManifestName extracts the project id from a manifest file.
// Foundry v10+ uses "id"; earlier versions used "name".
func readManifestName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}

	var fields struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if fields.ID != "" {
		return fields.ID, nil
	}
	return fields.Name, nil
}

// contains reports whether child is parent or lives under parent.
func contains(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
