package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ApplicationID marks a SQLite file as a starscope database ("SSCP").
const ApplicationID = 0x53534350

// FormatVersion is stored in PRAGMA user_version. Files written with any
// other version are rejected on load.
const FormatVersion = 2

var (
	// ErrIO reports a database file that could not be read or written.
	ErrIO = errors.New("database i/o error")
	// ErrCorrupt reports a file that is not a valid starscope database.
	ErrCorrupt = errors.New("corrupt database")
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection holding one serialized database.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
}

// dsn builds a file: URI for dbPath so that '?', '#' and '%' in the path
// are escaped instead of being read as URI syntax.
func dsn(dbPath string, pragmas ...string) string {
	p, err := filepath.Abs(dbPath)
	if err != nil {
		p = dbPath
	}
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	q := url.Values{}
	for _, pragma := range pragmas {
		q.Add("_pragma", pragma)
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: q.Encode()}
	return u.String()
}

// create opens a fresh SQLite file at dbPath and writes the schema.
func create(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath, "journal_mode(DELETE)", "busy_timeout(5000)", "foreign_keys(ON)"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// openReadOnly opens an existing file without modifying it.
func openReadOnly(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath, "query_only(1)", "busy_timeout(5000)"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction.
// The callback receives a transaction-scoped Store; the receiver's q field
// is never mutated.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := fmt.Sprintf(`
	PRAGMA application_id = %d;
	PRAGMA user_version = %d;

	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE roots (
		position INTEGER PRIMARY KEY,
		path TEXT NOT NULL UNIQUE
	);

	CREATE TABLE files (
		path TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL
	);

	CREATE TABLE contributions (
		file TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
		tbl TEXT NOT NULL,
		key TEXT NOT NULL,
		PRIMARY KEY (file, tbl, key)
	);

	CREATE TABLE entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tbl TEXT NOT NULL,
		key TEXT NOT NULL,
		file TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
		line INTEGER NOT NULL,
		scope BLOB NOT NULL DEFAULT X'',
		context TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX idx_entries_key ON entries(tbl, key);
	CREATE INDEX idx_entries_file ON entries(file, tbl, key);
	`, ApplicationID, FormatVersion)
	_, err := s.db.Exec(schema)
	return err
}

// header reads the identification pragmas.
func (s *Store) header() (appID, version int, err error) {
	if err := s.q.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return 0, 0, err
	}
	if err := s.q.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, 0, err
	}
	return appID, version, nil
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.q.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// Meta returns a metadata value, or "" when absent.
func (s *Store) meta(key string) (string, error) {
	var v string
	err := s.q.QueryRow("SELECT value FROM meta WHERE key=?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
