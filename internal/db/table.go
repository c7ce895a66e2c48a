package db

import (
	"sort"
	"strings"

	"github.com/DeusData/starscope/internal/fqn"
)

// Entry is one occurrence of a symbol. Scope holds the enclosing
// qualifiers, outermost first, and never includes Key itself.
type Entry struct {
	Key     string   `json:"key"`
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Scope   []string `json:"scope,omitempty"`
	Context string   `json:"context,omitempty"`
}

// QualifiedName joins scope and key with "::".
func (e Entry) QualifiedName() string {
	return fqn.Join(e.Scope, e.Key)
}

// entryID is the identity of an Entry within a table.
type entryID struct {
	file    string
	line    int
	scope   string
	context string
}

func idOf(e Entry) entryID {
	return entryID{file: e.File, line: e.Line, scope: strings.Join(e.Scope, "\x00"), context: e.Context}
}

// Table is one named relation: key -> set of entries.
type Table struct {
	name string
	keys map[string]map[entryID]Entry
}

func newTable(name string) *Table {
	return &Table{name: name, keys: make(map[string]map[entryID]Entry)}
}

// insert adds e under its key. Inserting an identical entry is a no-op.
func (t *Table) insert(e Entry) {
	set, ok := t.keys[e.Key]
	if !ok {
		set = make(map[entryID]Entry)
		t.keys[e.Key] = set
	}
	id := idOf(e)
	if _, dup := set[id]; dup {
		return
	}
	e.Scope = append([]string(nil), e.Scope...)
	set[id] = e
}

// retract removes every entry of file stored under the given keys.
func (t *Table) retract(file string, keys map[string]struct{}) {
	for key := range keys {
		set := t.keys[key]
		for id := range set {
			if id.file == file {
				delete(set, id)
			}
		}
		if len(set) == 0 {
			delete(t.keys, key)
		}
	}
}

// lookup returns copies of the entries stored under key.
func (t *Table) lookup(key string) []Entry {
	set := t.keys[key]
	out := make([]Entry, 0, len(set))
	for _, e := range set {
		e.Scope = append([]string(nil), e.Scope...)
		out = append(out, e)
	}
	return out
}

func (t *Table) empty() bool {
	return len(t.keys) == 0
}

// sortedKeys returns the table's keys in lexical order.
func (t *Table) sortedKeys() []string {
	keys := make([]string, 0, len(t.keys))
	for k := range t.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortEntries orders by (File, Line, Scope, Context).
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		as, bs := strings.Join(a.Scope, "::"), strings.Join(b.Scope, "::")
		if as != bs {
			return as < bs
		}
		return a.Context < b.Context
	})
}
