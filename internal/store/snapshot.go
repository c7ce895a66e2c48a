package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Snapshot is the plain-row form of a database exchanged with Save/Load.
type Snapshot struct {
	Roots   []string
	Files   []File
	Entries []Entry
}

// File is one indexed file and the (table, key) pairs it contributes.
type File struct {
	Path          string
	Fingerprint   string
	Contributions []Contribution
}

// Contribution names one key a file contributes to a table.
type Contribution struct {
	Table string
	Key   string
}

// Entry is one stored occurrence.
type Entry struct {
	Table   string
	Key     string
	File    string
	Line    int
	Scope   []string
	Context string
}

var sqliteHeader = []byte("SQLite format 3\x00")

// Save writes snap to path. The file is written under a temporary name in
// the same directory and renamed over path, so an interrupted save never
// leaves a half-written database behind.
func Save(path string, snap *Snapshot) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", ErrIO, dir, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
			_ = os.Remove(tmpPath + "-journal")
		}
	}()

	s, err := create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	err = s.WithTransaction(func(tx *Store) error {
		return tx.write(snap)
	})
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrIO, path, err)
	}
	slog.Debug("store.save", "path", path, "files", len(snap.Files), "entries", len(snap.Entries))
	return nil
}

func (s *Store) write(snap *Snapshot) error {
	if err := s.setMeta("saved_at", Now()); err != nil {
		return err
	}
	if err := s.insertRoots(snap.Roots); err != nil {
		return err
	}
	for i := range snap.Files {
		if err := s.insertFile(&snap.Files[i]); err != nil {
			return err
		}
	}
	for i := range snap.Entries {
		if err := s.insertEntry(&snap.Entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and validates the database at path. Files that cannot be
// read yield ErrIO; anything else that is not a well-formed database of the
// current FormatVersion yields ErrCorrupt.
func Load(path string) (*Snapshot, error) {
	if err := checkHeader(path); err != nil {
		return nil, err
	}

	s, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	defer s.Close()

	appID, version, err := s.header()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if appID != ApplicationID {
		return nil, fmt.Errorf("%w: %s: not a starscope database (application_id %#x)", ErrCorrupt, path, appID)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported format version %d (want %d)", ErrCorrupt, path, version, FormatVersion)
	}

	snap, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if err := Validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if savedAt, err := s.meta("saved_at"); err == nil && savedAt != "" {
		slog.Debug("store.load", "path", path, "saved_at", savedAt, "files", len(snap.Files))
	}
	return snap, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}

	buf := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s: file too short", ErrCorrupt, path)
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !bytes.Equal(buf, sqliteHeader) {
		return fmt.Errorf("%w: %s: not a SQLite file", ErrCorrupt, path)
	}
	return nil
}

func (s *Store) read() (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Roots, err = s.readRoots(); err != nil {
		return nil, err
	}
	if snap.Files, err = s.readFiles(); err != nil {
		return nil, err
	}
	contribs, err := s.readContributions()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(snap.Files))
	for i := range snap.Files {
		known[snap.Files[i].Path] = true
		snap.Files[i].Contributions = contribs[snap.Files[i].Path]
	}
	for file := range contribs {
		if !known[file] {
			return nil, fmt.Errorf("contribution references unknown file %s", file)
		}
	}
	if snap.Entries, err = s.readEntries(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Validate checks the cross-references of a snapshot: every entry belongs
// to a known file and lies inside that file's contribution set, every
// contribution is backed by at least one entry, and lines are positive.
func Validate(snap *Snapshot) error {
	type pair struct{ file, table, key string }

	files := make(map[string]bool, len(snap.Files))
	backed := make(map[pair]bool)
	for _, f := range snap.Files {
		if f.Path == "" {
			return errors.New("file with empty path")
		}
		if files[f.Path] {
			return fmt.Errorf("duplicate file %s", f.Path)
		}
		files[f.Path] = true
		for _, c := range f.Contributions {
			if c.Table == "" || c.Key == "" {
				return fmt.Errorf("file %s: empty contribution", f.Path)
			}
			backed[pair{f.Path, c.Table, c.Key}] = false
		}
	}

	for _, e := range snap.Entries {
		if !files[e.File] {
			return fmt.Errorf("entry %s/%s references unknown file %s", e.Table, e.Key, e.File)
		}
		if e.Line < 1 {
			return fmt.Errorf("entry %s/%s in %s: invalid line %d", e.Table, e.Key, e.File, e.Line)
		}
		p := pair{e.File, e.Table, e.Key}
		if _, ok := backed[p]; !ok {
			return fmt.Errorf("entry %s/%s in %s outside the file's contributions", e.Table, e.Key, e.File)
		}
		backed[p] = true
	}

	for p, ok := range backed {
		if !ok {
			return fmt.Errorf("contribution %s/%s of %s has no entries", p.table, p.key, p.file)
		}
	}
	return nil
}
