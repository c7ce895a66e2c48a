package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Roots: []string{"lib", "app"},
		Files: []File{
			{
				Path:        "lib/file.rb",
				Fingerprint: "aa11",
				Contributions: []Contribution{
					{Table: "calls", Key: "stat"},
					{Table: "defs", Key: "mtime"},
				},
			},
			{Path: "lib/empty.rb", Fingerprint: "bb22"},
		},
		Entries: []Entry{
			{Table: "defs", Key: "mtime", File: "lib/file.rb", Line: 2, Scope: []string{"File"}, Context: "def mtime"},
			{Table: "calls", Key: "stat", File: "lib/file.rb", Line: 3, Context: "stat.mtime"},
			{Table: "calls", Key: "stat", File: "lib/file.rb", Line: 7, Context: "stat"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	want := sampleSnapshot()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(got.Roots, want.Roots) {
		t.Errorf("roots = %v, want %v", got.Roots, want.Roots)
	}
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got.Files))
	}
	// files come back ordered by path
	if got.Files[0].Path != "lib/empty.rb" || len(got.Files[0].Contributions) != 0 {
		t.Errorf("unexpected first file %+v", got.Files[0])
	}
	if !reflect.DeepEqual(got.Files[1], want.Files[0]) {
		t.Errorf("file = %+v, want %+v", got.Files[1], want.Files[0])
	}
	if !reflect.DeepEqual(got.Entries, want.Entries) {
		t.Errorf("entries = %+v, want %+v", got.Entries, want.Entries)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.sqlite")

	if err := Save(path, sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(path, &Snapshot{Roots: []string{"."}}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Files) != 0 || len(got.Entries) != 0 || len(got.Roots) != 1 {
		t.Errorf("expected replaced contents, got %+v", got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestSaveUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "db.sqlite")
	if err := Save(path, sampleSnapshot()); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLoadDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLoadNotSQLite(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"garbage.db": "this is definitely not a database file at all",
		"empty.db":   "",
		"short.db":   "SQLite",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestLoadTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	if err := Save(path, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// keep only the first page: the header survives, every table root is gone
	if len(data) <= 4096 {
		t.Fatalf("database unexpectedly small: %d bytes", len(data))
	}
	if err := os.WriteFile(path, data[:4096], 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func rawExec(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
}

func TestLoadRejectsForeignFiles(t *testing.T) {
	tests := []struct {
		name  string
		stmts []string
	}{
		{"wrong version", []string{"PRAGMA user_version = 99"}},
		{"wrong application id", []string{"PRAGMA application_id = 7"}},
		{"missing table", []string{"DROP TABLE entries"}},
		{"dangling entry", []string{
			"PRAGMA foreign_keys = OFF",
			"INSERT INTO entries (tbl, key, file, line) VALUES ('defs', 'x', 'ghost.rb', 1)",
		}},
		{"entry outside contributions", []string{
			"INSERT INTO entries (tbl, key, file, line) VALUES ('defs', 'other', 'lib/file.rb', 1)",
		}},
		{"contribution without entries", []string{
			"INSERT INTO contributions (file, tbl, key) VALUES ('lib/empty.rb', 'defs', 'lonely')",
		}},
		{"zero line", []string{"UPDATE entries SET line = 0"}},
		{"truncated scope", []string{"UPDATE entries SET scope = X'05'"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.sqlite")
			if err := Save(path, sampleSnapshot()); err != nil {
				t.Fatal(err)
			}
			rawExec(t, path, tt.stmts...)
			if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestSaveLoadPathWithURISyntax(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "we?ird#dir%20")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "db?x=1#frag")

	if err := Save(path, sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database not written at the literal path: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Roots, sampleSnapshot().Roots) {
		t.Errorf("roots = %v", got.Roots)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("stray files next to the database: %v", entries)
	}
}

func TestScopeBytesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	snap := sampleSnapshot()
	snap.Entries[0].Scope = []string{"Fil\xe9", "", "a\x00b"}

	if err := Save(path, snap); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Entries[0].Scope, snap.Entries[0].Scope) {
		t.Errorf("scope = %q, want %q", got.Entries[0].Scope, snap.Entries[0].Scope)
	}
}

func TestLoadUnrelatedSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.sqlite")
	rawExec(t, path, "CREATE TABLE t (x INTEGER)")
	if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleSnapshot()); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	dup := sampleSnapshot()
	dup.Files = append(dup.Files, File{Path: "lib/empty.rb"})
	if err := Validate(dup); err == nil {
		t.Error("expected duplicate file to be rejected")
	}
}
