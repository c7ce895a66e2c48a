package db

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/starscope/internal/discover"
	"github.com/DeusData/starscope/internal/scanner"
)

// Report summarises one Update.
type Report struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged int
	Failures  []*FileError
}

// Err joins the per-file failures, or returns nil when there were none.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Changed reports whether the update altered the database.
func (r *Report) Changed() bool {
	return len(r.Added)+len(r.Modified)+len(r.Removed) > 0
}

func (r *Report) sort() {
	sort.Strings(r.Added)
	sort.Strings(r.Modified)
	sort.Strings(r.Removed)
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Path < r.Failures[j].Path })
}

// scanResult is what a worker hands back to the orchestrator.
type scanResult struct {
	path        string
	fingerprint string
	unchanged   bool
	entries     map[string][]Entry
	err         error
}

// Update brings the database in line with the files under its roots.
// Unchanged files are skipped by fingerprint, changed and new files are
// rescanned, and files that disappeared are retracted. Files that cannot
// be read or scanned keep their previous entries and are listed in
// Report.Failures. On cancellation the partial report is returned with
// ctx.Err(); every file merged so far is complete.
func (d *DB) Update(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	files, unreadable, err := d.walk(ctx, report)
	if err != nil {
		return report, err
	}
	slog.Info("update.discovered", "roots", len(d.roots), "files", len(files))

	// Retract files that vanished, unless they sit under a directory we
	// could not list this time.
	walked := make(map[string]bool, len(files))
	for _, f := range files {
		walked[f.Path] = true
	}
	for _, path := range d.Files() {
		if walked[path] || discover.UnderAny(path, unreadable) {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.sort()
			return report, err
		}
		d.removeFile(path)
		report.Removed = append(report.Removed, path)
	}

	if err := d.scanAll(ctx, files, report); err != nil {
		report.sort()
		return report, err
	}

	report.sort()
	for _, f := range report.Failures {
		slog.Warn("update.file.err", "path", f.Path, "err", f.Err)
	}
	slog.Info("update.done",
		"added", len(report.Added),
		"modified", len(report.Modified),
		"removed", len(report.Removed),
		"unchanged", report.Unchanged,
		"failed", len(report.Failures),
		"elapsed", time.Since(start))
	return report, nil
}

// walk discovers every root. Files reachable from more than one root are
// kept once.
func (d *DB) walk(ctx context.Context, report *Report) ([]discover.FileInfo, []discover.Unreadable, error) {
	roots := append([]string(nil), d.roots...)
	sort.Strings(roots)

	var files []discover.FileInfo
	var unreadable []discover.Unreadable
	seen := make(map[string]bool)
	for _, root := range roots {
		res, err := discover.Discover(ctx, root, d.registry, d.opts.Discover)
		if err != nil {
			return nil, nil, fmt.Errorf("discover %s: %w", root, err)
		}
		for _, u := range res.Unreadable {
			unreadable = append(unreadable, u)
			report.Failures = append(report.Failures, &FileError{
				Path: u.Path,
				Err:  fmt.Errorf("%w: %w", ErrUnreadableFile, u.Err),
			})
		}
		for _, f := range res.Files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
		}
	}
	return files, unreadable, nil
}

// scanAll fans files out to a bounded worker pool and merges results on
// the calling goroutine as they arrive.
func (d *DB) scanAll(ctx context.Context, files []discover.FileInfo, report *Report) error {
	if len(files) == 0 {
		return nil
	}

	// Workers only read this snapshot; tables and records are touched by
	// the merge loop below.
	previous := make(map[string]string, len(d.files))
	for path, rec := range d.files {
		previous[path] = rec.Fingerprint
	}

	numWorkers := d.opts.Workers
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	results := make(chan scanResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	go func() {
		for _, f := range files {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				prev, known := previous[f.Path]
				r := scanFile(f, prev, known)
				select {
				case results <- r:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var cancelled error
	for r := range results {
		if cancelled != nil {
			continue // drain so every worker can exit
		}
		if err := ctx.Err(); err != nil {
			cancelled = err
			continue
		}
		d.merge(r, report)
	}
	if cancelled == nil {
		cancelled = ctx.Err()
	}
	return cancelled
}

func (d *DB) merge(r scanResult, report *Report) {
	switch {
	case r.err != nil:
		report.Failures = append(report.Failures, &FileError{Path: r.path, Err: r.err})
	case r.unchanged:
		report.Unchanged++
	default:
		_, existed := d.files[r.path]
		d.applyFile(r.path, r.fingerprint, r.entries)
		if existed {
			report.Modified = append(report.Modified, r.path)
		} else {
			report.Added = append(report.Added, r.path)
		}
	}
}

// scanFile reads, fingerprints and (when changed) scans one file. It has
// no access to the database.
func scanFile(f discover.FileInfo, prevFingerprint string, known bool) scanResult {
	r := scanResult{path: f.Path}

	content, err := os.ReadFile(f.Path)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrUnreadableFile, err)
		return r
	}
	r.fingerprint = Fingerprint(content)
	if known && r.fingerprint == prevFingerprint {
		r.unchanged = true
		return r
	}

	records, err := f.Scanner.Extract(f.Path, content)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrScanFailure, err)
		return r
	}
	r.entries, err = toEntries(f.Path, records)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrScanFailure, err)
		return r
	}
	return r
}

func toEntries(path string, records []scanner.Record) (map[string][]Entry, error) {
	out := make(map[string][]Entry)
	for _, rec := range records {
		if rec.Table == "" || rec.Key == "" {
			return nil, fmt.Errorf("record without table or key at line %d", rec.Line)
		}
		if rec.Line < 1 {
			return nil, fmt.Errorf("%s %q: invalid line %d", rec.Table, rec.Key, rec.Line)
		}
		out[rec.Table] = append(out[rec.Table], Entry{
			Key:     rec.Key,
			File:    path,
			Line:    rec.Line,
			Scope:   rec.Scope,
			Context: rec.Context,
		})
	}
	return out, nil
}

// Fingerprint returns the hex xxh3-128 digest of content.
func Fingerprint(content []byte) string {
	sum := xxh3.Hash128(content).Bytes()
	return hex.EncodeToString(sum[:])
}
