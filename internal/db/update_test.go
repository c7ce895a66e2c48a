package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/DeusData/starscope/internal/scanner"
)

func snapshotRecords(d *DB) map[string]*FileRecord {
	out := make(map[string]*FileRecord)
	for _, p := range d.Files() {
		out[p], _ = d.FileRecord(p)
	}
	return out
}

func TestUpdateIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sym"), "defs File::mtime\ncalls stat\n")
	writeFile(t, filepath.Join(dir, "sub", "b.sym"), "calls mtime\nassigns x\n")
	d := newSymDB(t, dir)

	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	tables := d.DumpAll()
	records := snapshotRecords(d)

	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Changed() || report.Unchanged != 2 {
		t.Errorf("second update should be a no-op, got %+v", report)
	}
	if !reflect.DeepEqual(d.DumpAll(), tables) {
		t.Error("tables changed on idempotent update")
	}
	if !reflect.DeepEqual(snapshotRecords(d), records) {
		t.Error("file records changed on idempotent update")
	}
}

func TestUpdateModifiesOnlyChangedFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sym")
	b := filepath.Join(dir, "b.sym")
	writeFile(t, a, "defs File::mtime\n")
	writeFile(t, b, "calls mtime\ncalls stat\n")
	d := newSymDB(t, dir)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	aPath := filepath.ToSlash(a)
	bPath := filepath.ToSlash(b)
	aBefore, _ := d.FileRecord(aPath)
	defsBefore, _ := d.DumpTable("defs")

	writeFile(t, b, "calls open\n")
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report.Modified, []string{bPath}) || report.Unchanged != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	aAfter, _ := d.FileRecord(aPath)
	if !reflect.DeepEqual(aBefore, aAfter) {
		t.Errorf("untouched file record changed: %+v -> %+v", aBefore, aAfter)
	}
	if defsAfter, _ := d.DumpTable("defs"); !reflect.DeepEqual(defsBefore, defsAfter) {
		t.Errorf("untouched entries changed")
	}

	bRec, _ := d.FileRecord(bPath)
	if got := bRec.Keys("calls"); !reflect.DeepEqual(got, []string{"open"}) {
		t.Errorf("b contributions = %v", got)
	}
	if got, _ := d.Query("calls", "mtime"); len(got) != 0 {
		t.Errorf("stale call entries remain: %+v", got)
	}
	checkConsistency(t, d)
}

func TestUpdateRemovesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sym")
	writeFile(t, a, "defs File::mtime\n")
	writeFile(t, filepath.Join(dir, "b.sym"), "calls mtime\n")
	d := newSymDB(t, dir)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report.Removed, []string{filepath.ToSlash(a)}) {
		t.Errorf("Removed = %v", report.Removed)
	}
	if _, ok := d.FileRecord(filepath.ToSlash(a)); ok {
		t.Error("file record survived deletion")
	}
	// the only defs entry came from a.sym, so the table is gone
	if _, err := d.Query("defs", "mtime"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
	if got := d.Summary(); len(got) != 1 || got["calls"] != 1 {
		t.Errorf("Summary() = %v", got)
	}
	checkConsistency(t, d)
}

func TestUpdateMissingRoot(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "gone")
	writeFile(t, filepath.Join(sub, "a.sym"), "defs x\n")
	d := newSymDB(t, sub)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(sub); err != nil {
		t.Fatal(err)
	}
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Removed) != 1 || len(d.Files()) != 0 || len(d.Tables()) != 0 {
		t.Errorf("expected everything removed, report %+v", report)
	}
}

func TestScanFailureKeepsPriorEntries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sym")
	b := filepath.Join(dir, "b.sym")
	writeFile(t, a, "defs File::mtime\n")
	writeFile(t, b, "calls mtime\n")
	d := newSymDB(t, dir)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	aBefore, _ := d.FileRecord(filepath.ToSlash(a))

	writeFile(t, a, "defs File::atime\nFAIL\n")
	writeFile(t, b, "calls atime\n")
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatalf("Update must not fail for per-file errors: %v", err)
	}

	if len(report.Failures) != 1 || report.Failures[0].Path != filepath.ToSlash(a) {
		t.Fatalf("Failures = %+v", report.Failures)
	}
	if !errors.Is(report.Err(), ErrScanFailure) {
		t.Errorf("expected ErrScanFailure, got %v", report.Err())
	}
	var fe *FileError
	if !errors.As(report.Err(), &fe) || fe.Path != filepath.ToSlash(a) {
		t.Errorf("expected FileError for a.sym, got %v", report.Err())
	}

	if got, _ := d.Query("defs", "File::mtime"); len(got) != 1 {
		t.Errorf("prior entries of failed file lost: %+v", got)
	}
	if aAfter, _ := d.FileRecord(filepath.ToSlash(a)); !reflect.DeepEqual(aBefore, aAfter) {
		t.Error("failed file's record changed")
	}
	if got, _ := d.Query("calls", "atime"); len(got) != 1 {
		t.Errorf("healthy file not updated: %+v", got)
	}
	checkConsistency(t, d)

	// once fixed, the file is picked up again
	writeFile(t, a, "defs File::atime\n")
	report, err = d.Update(context.Background())
	if err != nil || report.Err() != nil {
		t.Fatalf("Update: %v %v", err, report.Err())
	}
	if got, _ := d.Query("defs", "mtime"); len(got) != 0 {
		t.Errorf("stale entries after recovery: %+v", got)
	}
}

func TestInvalidRecordIsScanFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sym"), "x")
	bad := scanner.Func(func(string, []byte) ([]scanner.Record, error) {
		return []scanner.Record{{Table: "defs", Key: "x", Line: 0}}, nil
	})
	d := New(symRegistry(t, bad), nil)
	d.AddDirs(dir)
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(report.Err(), ErrScanFailure) {
		t.Errorf("expected ErrScanFailure, got %v", report.Err())
	}
	if len(d.Files()) != 0 {
		t.Errorf("invalid file indexed: %v", d.Files())
	}
}

func TestUnreadableFileKeepsPriorEntries(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sym")
	writeFile(t, a, "defs x\n")
	d := newSymDB(t, dir)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Chmod(a, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(a, 0o600) })

	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(report.Err(), ErrUnreadableFile) {
		t.Errorf("expected ErrUnreadableFile, got %v", report.Err())
	}
	if got, _ := d.Query("defs", "x"); len(got) != 1 {
		t.Errorf("entries of unreadable file lost: %+v", got)
	}
}

func TestUnreadableDirectoryIsNotDeletion(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	writeFile(t, filepath.Join(locked, "a.sym"), "defs x\n")
	writeFile(t, filepath.Join(dir, "b.sym"), "defs y\n")
	d := newSymDB(t, dir)
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Removed) != 0 {
		t.Errorf("files under unreadable dir treated as deleted: %v", report.Removed)
	}
	if !errors.Is(report.Err(), ErrUnreadableFile) {
		t.Errorf("expected ErrUnreadableFile, got %v", report.Err())
	}
	if got, _ := d.Query("defs", "x"); len(got) != 1 {
		t.Errorf("entries under unreadable dir lost: %+v", got)
	}
}

func TestUnreadableWorkingDirectoryRootIsNotDeletion(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sym"), "defs x\n")
	t.Chdir(dir)
	d := newSymDB(t, ".")
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := d.Files(); len(got) != 1 || got[0] != "a.sym" {
		t.Fatalf("files = %v", got)
	}

	if err := os.Chmod(dir, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Removed) != 0 {
		t.Errorf("files under unreadable root treated as deleted: %v", report.Removed)
	}
	if !errors.Is(report.Err(), ErrUnreadableFile) {
		t.Errorf("expected ErrUnreadableFile, got %v", report.Err())
	}
	if got, _ := d.Query("defs", "x"); len(got) != 1 {
		t.Errorf("entries under unreadable root lost: %+v", got)
	}
}

func TestUpdateCancelledBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sym"), "defs x\n")
	d := newSymDB(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Update(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(d.Files()) != 0 || len(d.Tables()) != 0 {
		t.Error("cancelled update modified the database")
	}
}

func TestUpdateCancelledMidway(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		writeFile(t, filepath.Join(dir, name+".sym"), "defs "+name+"\ncalls shared\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	cancelling := scanner.Func(func(path string, content []byte) ([]scanner.Record, error) {
		once.Do(cancel)
		return symScanner.Extract(path, content)
	})
	d := New(symRegistry(t, cancelling), &Options{Workers: 2})
	d.AddDirs(dir)

	report, err := d.Update(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("expected partial report")
	}
	if len(report.Added) != len(d.Files()) {
		t.Errorf("report lists %d added, database holds %d files", len(report.Added), len(d.Files()))
	}
	// every merged file is complete
	for _, p := range d.Files() {
		rec, _ := d.FileRecord(p)
		if len(rec.Keys("defs")) != 1 || len(rec.Keys("calls")) != 1 {
			t.Errorf("file %s partially applied: %+v", p, rec.Contributions)
		}
	}
	checkConsistency(t, d)

	// a later update completes the job
	if _, err := d.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(d.Files()) != 8 {
		t.Errorf("expected 8 files after resumed update, got %d", len(d.Files()))
	}
}

func TestOverlappingRootsIndexOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "a.sym"), "defs x\n")
	d := newSymDB(t, dir, filepath.Join(dir, "lib"))
	report, err := d.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Added) != 1 {
		t.Errorf("Added = %v", report.Added)
	}
	if got, _ := d.Query("defs", "x"); len(got) != 1 {
		t.Errorf("expected one entry, got %+v", got)
	}
}

func TestFingerprintDetectsContentOnly(t *testing.T) {
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Error("distinct content, same fingerprint")
	}
	if Fingerprint([]byte("same")) != Fingerprint([]byte("same")) {
		t.Error("fingerprint not deterministic")
	}
	if len(Fingerprint(nil)) != 32 {
		t.Errorf("expected 128-bit hex digest, got %q", Fingerprint(nil))
	}
}
