package shell

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/DeusData/starscope/internal/db"
)

// PrintSummary writes one "table count keys" line per table, sorted by name.
func PrintSummary(w io.Writer, summary map[string]int) {
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-8s %5d keys\n", name, summary[name])
	}
}

// PrintEntries writes one line per entry: location, qualified name, source.
func PrintEntries(w io.Writer, entries []db.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s:%d  %s", e.File, e.Line, e.QualifiedName())
		if e.Context != "" {
			fmt.Fprintf(w, "  %s", e.Context)
		}
		fmt.Fprintln(w)
	}
}

// PrintTable writes a table header followed by its entries.
func PrintTable(w io.Writer, name string, entries []db.Entry) {
	fmt.Fprintf(w, "== %s ==\n", name)
	PrintEntries(w, entries)
}

// RunQuery splits input into "table<sep>pattern", runs it and prints the
// result. Problems are reported on errw; nothing is returned because a bad
// query never ends a session.
func RunQuery(w, errw io.Writer, d *db.DB, input, sep string) {
	table, pattern, ok := strings.Cut(input, sep)
	table = strings.TrimSpace(table)
	pattern = strings.TrimSpace(pattern)
	if !ok || table == "" {
		fmt.Fprintf(errw, "Invalid query - did you separate your table and query with '%s'?\n", sep)
		return
	}
	entries, err := d.Query(table, pattern)
	if errors.Is(err, db.ErrUnknownTable) {
		fmt.Fprintf(errw, "Table '%s' doesn't exist.\n", table)
		return
	}
	if err != nil {
		fmt.Fprintln(errw, err)
		return
	}
	PrintEntries(w, entries)
}

// PrintReport summarises an update on w and lists failures on errw.
func PrintReport(w, errw io.Writer, r *db.Report) {
	fmt.Fprintf(w, "%d added, %d modified, %d removed, %d unchanged\n",
		len(r.Added), len(r.Modified), len(r.Removed), r.Unchanged)
	for _, f := range r.Failures {
		fmt.Fprintf(errw, "warning: %v\n", f)
	}
}
