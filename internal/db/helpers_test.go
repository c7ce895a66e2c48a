package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// symScanner reads "*.sym" files made of "table qualified::name" lines.
// A line "FAIL" makes the scan fail.
var symScanner = scanner.Func(func(path string, content []byte) ([]scanner.Record, error) {
	var recs []scanner.Record
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "FAIL" {
			return nil, errors.New("refusing to scan")
		}
		table, name, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		scope, key := fqn.Split(name)
		recs = append(recs, scanner.Record{Table: table, Key: key, Scope: scope, Line: i + 1, Context: line})
	}
	return recs, nil
})

func symRegistry(t *testing.T, s scanner.Scanner) *scanner.Registry {
	t.Helper()
	r := scanner.NewRegistry()
	if err := r.Register("sym", []string{"*.sym"}, s); err != nil {
		t.Fatal(err)
	}
	return r
}

func newSymDB(t *testing.T, roots ...string) *DB {
	t.Helper()
	d := New(symRegistry(t, symScanner), &Options{Workers: 4})
	d.AddDirs(roots...)
	return d
}

// checkConsistency verifies that every entry belongs to its file's
// contribution set and every contribution is backed by an entry.
func checkConsistency(t *testing.T, d *DB) {
	t.Helper()
	type pair struct{ file, table, key string }
	backed := make(map[pair]bool)
	for _, path := range d.Files() {
		rec, _ := d.FileRecord(path)
		for table, keys := range rec.Contributions {
			for k := range keys {
				backed[pair{path, table, k}] = false
			}
		}
	}
	for table, entries := range d.DumpAll() {
		if len(entries) == 0 {
			t.Errorf("table %s is empty but still listed", table)
		}
		for _, e := range entries {
			p := pair{e.File, table, e.Key}
			if _, ok := backed[p]; !ok {
				t.Errorf("entry %+v in %s not in its file's contributions", e, table)
			}
			backed[p] = true
		}
	}
	for p, ok := range backed {
		if !ok {
			t.Errorf("contribution %+v has no entries", p)
		}
	}
}
