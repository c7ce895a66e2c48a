package db

import "sort"

// FileRecord tracks one indexed file: its content fingerprint and the
// (table, key) pairs it contributed.
type FileRecord struct {
	Path          string
	Fingerprint   string
	Contributions map[string]map[string]struct{} // table -> keys
}

func (r *FileRecord) clone() *FileRecord {
	c := &FileRecord{
		Path:          r.Path,
		Fingerprint:   r.Fingerprint,
		Contributions: make(map[string]map[string]struct{}, len(r.Contributions)),
	}
	for table, keys := range r.Contributions {
		ks := make(map[string]struct{}, len(keys))
		for k := range keys {
			ks[k] = struct{}{}
		}
		c.Contributions[table] = ks
	}
	return c
}

// Keys returns the sorted keys the file contributed to table.
func (r *FileRecord) Keys(table string) []string {
	keys := make([]string, 0, len(r.Contributions[table]))
	for k := range r.Contributions[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// retractFile removes every entry contributed by rec, dropping tables left
// empty.
func (d *DB) retractFile(rec *FileRecord) {
	for name, keys := range rec.Contributions {
		t, ok := d.tables[name]
		if !ok {
			continue
		}
		t.retract(rec.Path, keys)
		if t.empty() {
			delete(d.tables, name)
		}
	}
}

// applyFile replaces everything known about path with the given entries.
// It runs on the orchestrating goroutine only; the retract and insert are
// never interleaved with another file's merge.
func (d *DB) applyFile(path, fingerprint string, entries map[string][]Entry) {
	if old, ok := d.files[path]; ok {
		d.retractFile(old)
	}
	rec := &FileRecord{
		Path:          path,
		Fingerprint:   fingerprint,
		Contributions: make(map[string]map[string]struct{}, len(entries)),
	}
	for name, es := range entries {
		if len(es) == 0 {
			continue
		}
		t, ok := d.tables[name]
		if !ok {
			t = newTable(name)
			d.tables[name] = t
		}
		keys := make(map[string]struct{})
		for _, e := range es {
			t.insert(e)
			keys[e.Key] = struct{}{}
		}
		rec.Contributions[name] = keys
	}
	d.files[path] = rec
}

func (d *DB) removeFile(path string) {
	if rec, ok := d.files[path]; ok {
		d.retractFile(rec)
		delete(d.files, path)
	}
}
