// Package db holds the symbol database: named tables of entries, the
// registry of indexed files, incremental update, and scope-qualified
// queries.
package db

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/DeusData/starscope/internal/discover"
	"github.com/DeusData/starscope/internal/fqn"
)

// Options configures a DB.
type Options struct {
	// Workers bounds the number of files scanned in parallel. Zero means
	// runtime.NumCPU().
	Workers int
	// Discover is passed to discover.Discover for every root.
	Discover *discover.Options
}

// DB is an in-memory symbol database. It is not safe for concurrent use;
// Update parallelises internally.
type DB struct {
	tables   map[string]*Table
	files    map[string]*FileRecord
	roots    []string
	registry discover.Lookup
	opts     Options
}

// New returns an empty database that selects scanners from registry.
func New(registry discover.Lookup, opts *Options) *DB {
	d := &DB{
		tables:   make(map[string]*Table),
		files:    make(map[string]*FileRecord),
		registry: registry,
	}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.Workers <= 0 {
		d.opts.Workers = runtime.NumCPU()
	}
	return d
}

// AddDirs registers root paths to index. Roots are cleaned and
// de-duplicated; nothing is read until Update.
func (d *DB) AddDirs(paths ...string) {
	seen := make(map[string]bool, len(d.roots))
	for _, r := range d.roots {
		seen[r] = true
	}
	for _, p := range paths {
		p = filepath.ToSlash(filepath.Clean(p))
		if seen[p] {
			continue
		}
		seen[p] = true
		d.roots = append(d.roots, p)
	}
}

// Roots returns the registered roots in registration order.
func (d *DB) Roots() []string {
	return append([]string(nil), d.roots...)
}

// Tables returns the names of all non-empty tables, sorted.
func (d *DB) Tables() []string {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Files returns the paths of all indexed files, sorted.
func (d *DB) Files() []string {
	paths := make([]string, 0, len(d.files))
	for p := range d.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FileRecord returns a copy of the record for path.
func (d *DB) FileRecord(path string) (*FileRecord, bool) {
	rec, ok := d.files[path]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// Query returns the entries of table whose key is the last component of
// pattern and whose scope ends with the pattern's leading components.
// "File::mtime" matches mtime defined in File, Foo::File, and so on. A
// table that does not exist yields ErrUnknownTable; an existing table with
// no match yields an empty slice.
func (d *DB) Query(table, pattern string) ([]Entry, error) {
	t, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	scope, key := fqn.Split(pattern)
	if key == "" {
		return []Entry{}, nil
	}
	candidates := t.lookup(key)
	out := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		if fqn.HasSuffix(e.Scope, scope) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

// Summary returns the number of distinct keys per table.
func (d *DB) Summary() map[string]int {
	out := make(map[string]int, len(d.tables))
	for name, t := range d.tables {
		out[name] = len(t.keys)
	}
	return out
}

// DumpTable returns every entry of table sorted by (Key, File, Line).
func (d *DB) DumpTable(table string) ([]Entry, error) {
	t, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var out []Entry
	for _, key := range t.sortedKeys() {
		entries := t.lookup(key)
		sortEntries(entries)
		out = append(out, entries...)
	}
	return out, nil
}

// DumpAll returns DumpTable for every table.
func (d *DB) DumpAll() map[string][]Entry {
	out := make(map[string][]Entry, len(d.tables))
	for name := range d.tables {
		out[name], _ = d.DumpTable(name)
	}
	return out
}
