package lang

import (
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Language represents a supported programming language.
type Language string

const (
	Go         Language = "go"
	Ruby       Language = "ruby"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Rust       Language = "rust"
	Java       Language = "java"
	C          Language = "c"
	CPP        Language = "cpp"
	CSharp     Language = "c-sharp"
	PHP        Language = "php"
	Lua        Language = "lua"
	Scala      Language = "scala"
	Kotlin     Language = "kotlin"
	Bash       Language = "bash"
)

// LanguageSpec defines which files belong to a language and which
// tree-sitter node kinds carry symbols.
type LanguageSpec struct {
	Language Language
	// FilePatterns are doublestar globs matched against the base name
	// (e.g. "*.rb", "Rakefile").
	FilePatterns []string

	// FunctionNodeTypes emit a defs record but do not open a scope.
	FunctionNodeTypes []string
	// ClassNodeTypes emit a defs record and open a scope for their body.
	ClassNodeTypes []string
	// ScopeNodeTypes open a scope named by their "type" or "name" field
	// without emitting a definition (Rust impl blocks).
	ScopeNodeTypes []string
	// DefsNeedBody restricts ClassNodeTypes to nodes with a "body" field,
	// so C-style `struct foo x;` uses are not reported as definitions.
	DefsNeedBody bool

	CallNodeTypes       []string
	ImportNodeTypes     []string
	AssignmentNodeTypes []string

	// ImportSeparator splits an import path into scope components.
	ImportSeparator string
}

var registry = map[Language]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	registry[spec.Language] = spec
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(l Language) *LanguageSpec {
	return registry[l]
}

// AllLanguages returns every registered language in name order.
func AllLanguages() []Language {
	out := make([]Language, 0, len(registry))
	for l := range registry {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForFile returns the LanguageSpec whose patterns match the base name of
// the given path. Languages are tried in name order.
func ForFile(p string) *LanguageSpec {
	base := path.Base(p)
	for _, l := range AllLanguages() {
		spec := registry[l]
		if spec.Matches(base) {
			return spec
		}
	}
	return nil
}

// Matches reports whether a base file name matches one of the spec's patterns.
func (s *LanguageSpec) Matches(base string) bool {
	for _, pattern := range s.FilePatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
