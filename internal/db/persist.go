package db

import (
	"log/slog"
	"sort"

	"github.com/DeusData/starscope/internal/store"
)

// Save writes the database to path, replacing any existing file.
func (d *DB) Save(path string) error {
	if err := store.Save(path, d.snapshot()); err != nil {
		return err
	}
	slog.Info("db.saved", "path", path, "files", len(d.files), "tables", len(d.tables))
	return nil
}

// Load replaces the database contents with the file at path. Roots are
// replaced by the stored roots. On error the database is left unchanged.
func (d *DB) Load(path string) error {
	snap, err := store.Load(path)
	if err != nil {
		return err
	}

	tables := make(map[string]*Table)
	files := make(map[string]*FileRecord, len(snap.Files))
	for _, f := range snap.Files {
		rec := &FileRecord{
			Path:          f.Path,
			Fingerprint:   f.Fingerprint,
			Contributions: make(map[string]map[string]struct{}),
		}
		for _, c := range f.Contributions {
			keys, ok := rec.Contributions[c.Table]
			if !ok {
				keys = make(map[string]struct{})
				rec.Contributions[c.Table] = keys
			}
			keys[c.Key] = struct{}{}
		}
		files[f.Path] = rec
	}
	for _, e := range snap.Entries {
		t, ok := tables[e.Table]
		if !ok {
			t = newTable(e.Table)
			tables[e.Table] = t
		}
		t.insert(Entry{Key: e.Key, File: e.File, Line: e.Line, Scope: e.Scope, Context: e.Context})
	}

	d.tables = tables
	d.files = files
	d.roots = nil
	d.AddDirs(snap.Roots...)
	slog.Info("db.loaded", "path", path, "files", len(files), "tables", len(tables))
	return nil
}

func (d *DB) snapshot() *store.Snapshot {
	snap := &store.Snapshot{Roots: d.Roots()}
	for _, path := range d.Files() {
		rec := d.files[path]
		f := store.File{Path: rec.Path, Fingerprint: rec.Fingerprint}
		tables := make([]string, 0, len(rec.Contributions))
		for t := range rec.Contributions {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			for _, k := range rec.Keys(t) {
				f.Contributions = append(f.Contributions, store.Contribution{Table: t, Key: k})
			}
		}
		snap.Files = append(snap.Files, f)
	}
	for _, name := range d.Tables() {
		entries, _ := d.DumpTable(name)
		for _, e := range entries {
			snap.Entries = append(snap.Entries, store.Entry{
				Table:   name,
				Key:     e.Key,
				File:    e.File,
				Line:    e.Line,
				Scope:   e.Scope,
				Context: e.Context,
			})
		}
	}
	return snap
}
