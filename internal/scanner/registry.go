package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
)

type registration struct {
	name     string
	patterns []string
	scanner  Scanner
}

// Registry maps file name patterns to scanners. Lookups are pure; the
// first registration whose pattern matches wins.
type Registry struct {
	entries []registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a scanner for the given base-name patterns (doublestar
// syntax, e.g. "*.rb", "Rakefile", "*.{ts,mts}").
func (r *Registry) Register(name string, patterns []string, s Scanner) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("scanner %s: invalid pattern %q", name, p)
		}
	}
	r.entries = append(r.entries, registration{
		name:     name,
		patterns: append([]string(nil), patterns...),
		scanner:  s,
	})
	return nil
}

// Lookup returns the scanner responsible for a file path.
func (r *Registry) Lookup(p string) (Scanner, bool) {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	for _, e := range r.entries {
		for _, pattern := range e.patterns {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return e.scanner, true
			}
		}
	}
	return nil, false
}

// Names returns the registered scanner names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Options configures the bundled scanners.
type Options struct {
	// Languages restricts the registry to these language names. Empty
	// means every bundled language.
	Languages []string
	// AllowSyntaxErrors indexes files whose parse tree contains errors
	// instead of rejecting them.
	AllowSyntaxErrors bool
}

// Default returns a registry holding the bundled tree-sitter scanners.
func Default(opts Options) (*Registry, error) {
	langs := lang.AllLanguages()
	if len(opts.Languages) > 0 {
		langs = nil
		for _, name := range opts.Languages {
			l := lang.Language(strings.ToLower(strings.TrimSpace(name)))
			if lang.ForLanguage(l) == nil || !parser.Supported(l) {
				return nil, fmt.Errorf("unknown language %q", name)
			}
			langs = append(langs, l)
		}
	}

	r := NewRegistry()
	for _, l := range langs {
		s, err := NewTreeSitter(l, opts.AllowSyntaxErrors)
		if err != nil {
			return nil, err
		}
		if err := r.Register(string(l), lang.ForLanguage(l).FilePatterns, s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
