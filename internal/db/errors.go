package db

import (
	"errors"

	"github.com/DeusData/starscope/internal/store"
)

var (
	// ErrUnknownTable is returned by Query and DumpTable for a table that
	// holds no entries.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnreadableFile marks a file or directory that could not be read
	// during Update.
	ErrUnreadableFile = errors.New("unreadable file")
	// ErrScanFailure marks a file its scanner rejected.
	ErrScanFailure = errors.New("scan failure")

	// ErrCorruptDatabase and ErrPersistenceIO are the codec's sentinels.
	ErrCorruptDatabase = store.ErrCorrupt
	ErrPersistenceIO   = store.ErrIO
)

// FileError is a per-file failure recorded by Update. The file's previous
// entries are left in place.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}
