// Package scanner defines the extraction contract between the index and the
// per-language symbol scanners, plus the registry that selects a scanner by
// file name.
package scanner

import "fmt"

// Table names emitted by the bundled scanners. The set is open-ended: a
// Scanner may emit any table name.
const (
	TableDefs     = "defs"
	TableCalls    = "calls"
	TableRequires = "requires"
	TableImports  = "imports"
	TableIncludes = "includes"
	TableAssigns  = "assigns"
)

// Record is one raw symbol occurrence produced by a Scanner.
type Record struct {
	Table   string
	Key     string   // innermost, unqualified name
	Scope   []string // enclosing qualifiers, outermost first
	Line    int      // 1-based
	Context string   // trimmed source line
}

// Scanner extracts records from one file. Implementations must be pure:
// Extract is called from several goroutines at once.
type Scanner interface {
	Extract(path string, content []byte) ([]Record, error)
}

// Func adapts a plain function to the Scanner interface.
type Func func(path string, content []byte) ([]Record, error)

// Extract calls f.
func (f Func) Extract(path string, content []byte) ([]Record, error) {
	return f(path, content)
}

// SyntaxError reports content a scanner refused to index.
type SyntaxError struct {
	Path string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: syntax error", e.Path, e.Line)
}
