// Package download fetches remotely hosted assets referenced by a project's
// databases and rewrites those references to the downloaded local copies.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"fwt-go/internal/fwt"
	"fwt-go/internal/nedb"
	"fwt-go/internal/project"
)

// Downloader finds http(s) asset URLs in the database index, fetches each
// into a directory under the project, and rewrites every database reference
// from the URL to the new local path.
type Downloader struct {
	project  *project.Project
	index    *nedb.Index
	rewriter *nedb.Rewriter
	client   *http.Client
	logger   fwt.Logger
}

// A Result describes one downloaded asset.
type Result struct {
	URL string
	Rel string
	Err error
}

// NewDownloader creates a Downloader. client may be nil to use the default
// HTTP client.
func NewDownloader(p *project.Project, index *nedb.Index, rewriter *nedb.Rewriter, client *http.Client, logger fwt.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{project: p, index: index, rewriter: rewriter, client: client, logger: logger}
}

// URLPattern builds the regular expression matching remote asset URLs with
// one of the given extensions (leading dot optional, case-insensitive).
func URLPattern(extensions []string) (*regexp.Regexp, error) {
	if len(extensions) == 0 {
		return nil, fmt.Errorf("no extensions given")
	}

	alts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(e))
	}
	return regexp.Compile(`https?://[^"\\\s]+\.(?i:` + strings.Join(alts, "|") + `)`)
}

// Run downloads every matching URL into assetDir (relative to the project
// root) and rewrites its occurrences. types, when non-empty, restricts the
// search to the named databases (e.g. "actors" means data/actors.db); the
// rewrite still covers every database so no stale URL survives. Failed
// downloads are reported in the results and leave their references untouched.
func (d *Downloader) Run(ctx context.Context, assetDir string, pattern *regexp.Regexp, types []string) ([]Result, error) {
	urls := d.matches(pattern, types)
	if len(urls) == 0 {
		return nil, nil
	}

	dir := filepath.Join(d.project.Root, filepath.FromSlash(assetDir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}

	used := make(map[string]bool)
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		rel, err := d.fetch(ctx, u, dir, used)
		if err == nil {
			_, err = d.rewriter.ApplyRaw(u, rel)
		}
		if err != nil {
			d.logger.Warn("download failed", "url", u, "error", err)
		} else {
			d.logger.Info("downloaded", "url", u, "path", rel)
		}
		results = append(results, Result{URL: u, Rel: rel, Err: err})
	}
	return results, nil
}

// matches collects the distinct URLs referenced by the selected databases.
func (d *Downloader) matches(pattern *regexp.Regexp, types []string) []string {
	if len(types) == 0 {
		return d.index.Matches(pattern)
	}

	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed["data/"+strings.TrimSuffix(t, ".db")+".db"] = true
	}

	seen := make(map[string]bool)
	for _, doc := range d.index.Documents() {
		if !allowed[doc.Rel] {
			continue
		}
		for _, line := range doc.Lines() {
			for _, m := range pattern.FindAllString(line, -1) {
				seen[m] = true
			}
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// fetch downloads one URL into dir and returns the new data-root-relative
// reference path. used holds the filenames already claimed by this run so
// URLs sharing a basename never overwrite each other.
func (d *Downloader) fetch(ctx context.Context, rawURL, dir string, used map[string]bool) (string, error) {
	name, err := localName(rawURL)
	if err != nil {
		return "", err
	}
	name = uniqueName(dir, name, used)
	used[name] = true

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	dest := filepath.Join(dir, name)
	if err := writeStream(dest, resp.Body); err != nil {
		return "", err
	}

	return d.project.Rel(dest)
}

// uniqueName disambiguates name against files already claimed by this run
// and files already present in dir, suffixing the stem with a counter.
func uniqueName(dir, name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 1; ; n++ {
		if !used[candidate] {
			if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
				return candidate
			}
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

// localName derives a safe local filename from a URL's final path segment.
func localName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url %s has no usable filename", rawURL)
	}
	return sanitize(name), nil
}

// sanitize replaces characters that are unsafe in filenames or in stored
// references with underscores.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// writeStream writes a response body through a .part staging file renamed
// into place once complete.
func writeStream(dest string, body io.Reader) error {
	part := dest + ".part"
	f, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("writing download: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("closing staging file: %w", err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("committing download: %w", err)
	}
	return nil
}
