package store

import (
	"encoding/binary"
	"errors"
	"fmt"
)

func (s *Store) insertRoots(roots []string) error {
	for i, r := range roots {
		if _, err := s.q.Exec("INSERT INTO roots (position, path) VALUES (?, ?)", i, r); err != nil {
			return fmt.Errorf("insert root %s: %w", r, err)
		}
	}
	return nil
}

func (s *Store) insertFile(f *File) error {
	if _, err := s.q.Exec("INSERT INTO files (path, fingerprint) VALUES (?, ?)", f.Path, f.Fingerprint); err != nil {
		return fmt.Errorf("insert file %s: %w", f.Path, err)
	}
	for _, c := range f.Contributions {
		if _, err := s.q.Exec("INSERT OR IGNORE INTO contributions (file, tbl, key) VALUES (?, ?, ?)",
			f.Path, c.Table, c.Key); err != nil {
			return fmt.Errorf("insert contribution %s/%s: %w", c.Table, c.Key, err)
		}
	}
	return nil
}

func (s *Store) insertEntry(e *Entry) error {
	scope := marshalScope(e.Scope)
	_, err := s.q.Exec(`INSERT INTO entries (tbl, key, file, line, scope, context)
		VALUES (?, ?, ?, ?, ?, ?)`, e.Table, e.Key, e.File, e.Line, scope, e.Context)
	if err != nil {
		return fmt.Errorf("insert entry %s/%s: %w", e.Table, e.Key, err)
	}
	return nil
}

func (s *Store) readRoots() ([]string, error) {
	rows, err := s.q.Query("SELECT path FROM roots ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("read roots: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) readFiles() ([]File, error) {
	rows, err := s.q.Query("SELECT path, fingerprint FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("read files: %w", err)
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.Fingerprint); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// readContributions returns contributions grouped by file path.
func (s *Store) readContributions() (map[string][]Contribution, error) {
	rows, err := s.q.Query("SELECT file, tbl, key FROM contributions ORDER BY file, tbl, key")
	if err != nil {
		return nil, fmt.Errorf("read contributions: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]Contribution)
	for rows.Next() {
		var file string
		var c Contribution
		if err := rows.Scan(&file, &c.Table, &c.Key); err != nil {
			return nil, err
		}
		out[file] = append(out[file], c)
	}
	return out, rows.Err()
}

func (s *Store) readEntries() ([]Entry, error) {
	rows, err := s.q.Query("SELECT tbl, key, file, line, scope, context FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var scope []byte
		if err := rows.Scan(&e.Table, &e.Key, &e.File, &e.Line, &scope, &e.Context); err != nil {
			return nil, err
		}
		if e.Scope, err = unmarshalScope(scope); err != nil {
			return nil, fmt.Errorf("entry %s/%s scope: %w", e.Table, e.Key, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// marshalScope encodes a scope as length-prefixed components. Names are
// kept as raw bytes; source files are not always valid UTF-8.
func marshalScope(scope []string) []byte {
	out := []byte{}
	for _, c := range scope {
		out = binary.AppendUvarint(out, uint64(len(c)))
		out = append(out, c...)
	}
	return out
}

var errBadScope = errors.New("malformed scope encoding")

func unmarshalScope(data []byte) ([]string, error) {
	var scope []string
	for len(data) > 0 {
		n, w := binary.Uvarint(data)
		if w <= 0 || n > uint64(len(data)-w) {
			return nil, errBadScope
		}
		data = data[w:]
		scope = append(scope, string(data[:n]))
		data = data[n:]
	}
	return scope, nil
}
