package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"fwt-go/internal/config"
	"fwt-go/internal/dedup"
	"fwt-go/internal/download"
	"fwt-go/internal/fwt"
	"fwt-go/internal/history"
	"fwt-go/internal/nedb"
	"fwt-go/internal/project"
	"fwt-go/internal/renamer"
	"fwt-go/internal/scan"
	"fwt-go/internal/trash"
)

// FWTApp is the application layer between the CLI and the domain service.
// It constructs all dependencies from config for one project, exposes
// high-level operations that accept raw string paths, and manages the
// history ledger lifecycle on Close.
type FWTApp struct {
	cfg      *config.Config
	project  *project.Project
	index    *nedb.Index
	rewriter *nedb.Rewriter
	sessions *trash.SessionStore
	service  *fwt.Service
	history  *history.Store
	logger   fwt.Logger
	inv      *Invocation
	logFile  *os.File
}

// NewFWTApp creates a fully wired FWTApp for the project containing dir.
// command identifies the CLI command being run (e.g. "Dedup", "RenameAll").
// The caller must call Close when done.
func NewFWTApp(cfg *config.Config, command, dir string) (*FWTApp, error) {
	proj, err := project.Resolve(dir, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0755); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	hist, err := history.Open(cfg.HistoryPath, fwt.RealClock{}, fwt.UUIDGenerator{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	index, err := nedb.Load(proj, log)
	if err != nil {
		hist.Close()
		logFile.Close()
		return nil, fmt.Errorf("loading databases: %w", err)
	}

	sessions := trash.NewSessionStore(filepath.Join(proj.Root, cfg.TrashDir))
	mover := trash.NewMover(proj.DataRoot, proj.Root, sessions, log)
	rewriter := nedb.NewRewriter(index, sessions, log)
	walker := scan.NewWalker(proj, log)
	svc := fwt.NewService(walker, rewriter, mover, sessions, log)

	return &FWTApp{
		cfg:      cfg,
		project:  proj,
		index:    index,
		rewriter: rewriter,
		sessions: sessions,
		service:  svc,
		history:  hist,
		logger:   log,
		inv:      NewInvocation(command, proj.Name),
		logFile:  logFile,
	}, nil
}

// Project returns the resolved project.
func (a *FWTApp) Project() *project.Project {
	return a.project
}

// persistInvocation saves the invocation to the history ledger.
// This should only be called for mutating commands.
func (a *FWTApp) persistInvocation() error {
	if a.inv.Persisted() {
		return nil
	}
	id, err := a.history.RecordInvocation(a.inv.Command, a.inv.Project)
	if err != nil {
		return fmt.Errorf("persisting invocation: %w", err)
	}
	a.inv.ID = id
	return nil
}

// recordReport appends every executed mapping to the ledger and downgrades
// the invocation status if any mapping failed.
func (a *FWTApp) recordReport(report *fwt.BatchReport) {
	for _, res := range report.Results {
		rec := history.MappingRecord{
			InvocationID: a.inv.ID,
			Source:       res.Mapping.Source,
			Dest:         res.Mapping.Dest,
			Trashed:      res.Mapping.Trash,
			Documents:    res.Rewrite.Documents,
			Occurrences:  res.Rewrite.Occurrences,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
			a.inv.Status = "error"
		}
		if err := a.history.RecordMapping(rec); err != nil {
			a.logger.Warn("recording mapping failed", "source", rec.Source, "error", err)
		}
	}
}

// excludeDirs combines the built-in exclusions (trash, database directories)
// with the configured and per-command ones.
func (a *FWTApp) excludeDirs(extra []string) []string {
	dirs := []string{a.cfg.TrashDir, "data", "packs"}
	dirs = append(dirs, a.cfg.ExcludeDirs...)
	return append(dirs, extra...)
}

// ResolveRef converts a raw CLI path argument into the stored reference
// form: data-root-relative with forward slashes. Filesystem paths (absolute
// or relative to the working directory) are resolved against the data root;
// anything else is taken as an already-relative reference.
func (a *FWTApp) ResolveRef(raw string) string {
	if abs, err := filepath.Abs(raw); err == nil {
		if rel, err := a.project.Rel(abs); err == nil {
			return rel
		}
	}
	return path.Clean(filepath.ToSlash(raw))
}

// Dedup finds duplicate assets and removes the redundant copies. byName
// groups by directory and base name; the default groups by file content.
func (a *FWTApp) Dedup(byName bool, preferred, ext, exclude []string) (*fwt.BatchReport, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	compiled, err := dedup.CompilePreferred(preferred, a.project.RootRel())
	if err != nil {
		return nil, err
	}

	var detector fwt.Detector
	if byName {
		detector = dedup.ByName(compiled, a.logger)
	} else {
		detector = dedup.ByContent(compiled, a.logger)
	}

	report, err := a.service.Dedup(detector, ext, a.excludeDirs(exclude))
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	a.recordReport(report)
	return report, nil
}

// RenameAll applies removal and replacement patterns to every matching
// asset's path and executes the resulting renames.
func (a *FWTApp) RenameAll(remove, replace []string, lower bool, ext, exclude []string) (*fwt.BatchReport, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	planner, err := renamer.NewPlanner(a.project.RootRel(), remove, replace, lower, a.logger)
	if err != nil {
		return nil, err
	}

	report, err := a.service.RenameAll(planner, ext, a.excludeDirs(exclude))
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	a.recordReport(report)
	return report, nil
}

// Rename moves (or with keepSrc copies) one asset to a new path.
func (a *FWTApp) Rename(rawSrc, rawDest string, keepSrc bool) (*fwt.BatchReport, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	report, err := a.service.Rename(a.ResolveRef(rawSrc), a.ResolveRef(rawDest), keepSrc)
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	a.recordReport(report)
	return report, nil
}

// Replace swaps the file behind target with source, trashing the old target.
func (a *FWTApp) Replace(rawTarget, rawSrc string) (*fwt.BatchReport, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	report, err := a.service.Replace(a.ResolveRef(rawTarget), a.ResolveRef(rawSrc))
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	a.recordReport(report)
	return report, nil
}

// Pull copies externally stored assets referenced by this project into a
// directory under the project and rewrites the references.
func (a *FWTApp) Pull(fromPrefix, toPrefix string) (*fwt.BatchReport, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	report, err := a.service.Pull(a.index, a.ResolveRef(fromPrefix), a.ResolveRef(toPrefix))
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	a.recordReport(report)
	return report, nil
}

// Download fetches remote asset URLs referenced in the databases into
// assetDir (relative to the project root) and rewrites the references.
// types, when non-empty, restricts the search to the named databases.
func (a *FWTApp) Download(ctx context.Context, assetDir string, ext, types []string) ([]download.Result, error) {
	if err := a.persistInvocation(); err != nil {
		return nil, err
	}

	pattern, err := download.URLPattern(ext)
	if err != nil {
		return nil, err
	}

	d := download.NewDownloader(a.project, a.index, a.rewriter, http.DefaultClient, a.logger)
	results, err := d.Run(ctx, assetDir, pattern, types)
	if err != nil {
		a.inv.Status = "error"
		return nil, err
	}
	for _, r := range results {
		if r.Err != nil {
			a.inv.Status = "error"
			break
		}
	}
	return results, nil
}

// ProjectInfo is a summary of the resolved project for the info command.
type ProjectInfo struct {
	Name        string
	Type        string
	Root        string
	DataRoot    string
	Manifest    string
	Databases   int
	Malformed   int
	NextSession int
}

// Info summarizes the project without mutating anything.
func (a *FWTApp) Info() (*ProjectInfo, error) {
	next, err := trash.NextIndex(filepath.Join(a.project.Root, a.cfg.TrashDir))
	if err != nil {
		return nil, err
	}
	return &ProjectInfo{
		Name:        a.project.Name,
		Type:        a.project.Type,
		Root:        a.project.Root,
		DataRoot:    a.project.DataRoot,
		Manifest:    a.project.ManifestPath,
		Databases:   len(a.index.Documents()),
		Malformed:   len(a.index.Malformed),
		NextSession: next,
	}, nil
}

// History returns the most recent invocations from the ledger.
func (a *FWTApp) History(limit int) ([]history.Invocation, error) {
	return a.history.ListInvocations(limit)
}

// HistoryMappings returns the mappings recorded for one past invocation.
func (a *FWTApp) HistoryMappings(invocationID string) ([]history.MappingRecord, error) {
	return a.history.ListMappings(invocationID)
}

// Close finalizes the invocation record and closes all resources.
func (a *FWTApp) Close() error {
	var firstErr error

	if a.inv.Persisted() {
		if err := a.history.FinishInvocation(a.inv.ID, a.sessions.Name(), a.inv.Status); err != nil {
			firstErr = err
		}
	}
	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
