package discover

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DeusData/starscope/internal/scanner"
)

// IgnoreFileName is read from each root when Options.IgnoreFile is empty.
const IgnoreFileName = ".starscopeignore"

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".bundle": true, ".cache": true, ".git": true, ".hg": true,
	".idea": true, ".mypy_cache": true, ".pytest_cache": true,
	".ruff_cache": true, ".svn": true, ".tox": true, ".venv": true,
	".vscode": true, ".yarn": true, "__pycache__": true,
	"bower_components": true, "node_modules": true, "site-packages": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = []string{
	".tmp", "~", ".swp", ".pyc", ".pyo", ".o", ".a", ".so", ".dll", ".class",
}

// Lookup selects the scanner for a path; *scanner.Registry satisfies it.
type Lookup interface {
	Lookup(path string) (scanner.Scanner, bool)
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path    string // root joined with RelPath, slash-separated
	RelPath string // relative to the root
	Scanner scanner.Scanner
}

// Unreadable is a directory (or file) the walk could not enter.
type Unreadable struct {
	Path string
	Err  error
}

// Result is the outcome of walking one root.
type Result struct {
	Files      []FileInfo
	Unreadable []Unreadable
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string   // path to an ignore file (optional)
	Exclude    []string // doublestar globs matched against relative paths and base names
}

// shouldSkip reports whether a name or its root-relative path is ignored.
func shouldSkip(name, rel string, extraIgnore []string) bool {
	for _, pattern := range extraIgnore {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Discover walks one root and returns every file a scanner is registered
// for. A root that does not exist yields an empty result. Directories that
// cannot be read are reported in Result.Unreadable and skipped.
func Discover(ctx context.Context, root string, lookup Lookup, opts *Options) (*Result, error) {
	// Check cancellation before starting walk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root = filepath.Clean(root)
	res := &Result{}

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return res, nil
	case err != nil:
		res.Unreadable = append(res.Unreadable, Unreadable{Path: filepath.ToSlash(root), Err: err})
		return res, nil
	}

	var extraIgnore []string
	if opts != nil {
		extraIgnore = append(extraIgnore, opts.Exclude...)
	}
	ignPath := filepath.Join(root, IgnoreFileName)
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	if patterns, err := loadIgnoreFile(ignPath); err == nil {
		extraIgnore = append(extraIgnore, patterns...)
	}

	if !info.IsDir() {
		name := filepath.Base(root)
		if s, ok := lookup.Lookup(name); ok && !shouldSkip(name, name, extraIgnore) {
			res.Files = append(res.Files, FileInfo{Path: filepath.ToSlash(root), RelPath: name, Scanner: s})
		}
		return res, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		// Check context cancellation periodically during walk
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			res.Unreadable = append(res.Unreadable, Unreadable{Path: filepath.ToSlash(path), Err: walkErr})
			if d == nil || d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if IGNORE_PATTERNS[d.Name()] || shouldSkip(d.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		for _, suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(d.Name(), suffix) {
				return nil
			}
		}
		if d.Name() == IgnoreFileName || shouldSkip(d.Name(), rel, extraIgnore) {
			return nil
		}

		s, ok := lookup.Lookup(rel)
		if !ok {
			return nil
		}
		res.Files = append(res.Files, FileInfo{
			Path:    filepath.ToSlash(path),
			RelPath: rel,
			Scanner: s,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UnderAny reports whether path lies inside one of the given directories.
func UnderAny(path string, dirs []Unreadable) bool {
	for _, d := range dirs {
		if d.Path == "." {
			// Paths under the working directory are stored without "./".
			if !strings.HasPrefix(path, "/") && path != ".." && !strings.HasPrefix(path, "../") {
				return true
			}
			continue
		}
		if path == d.Path || strings.HasPrefix(path, strings.TrimSuffix(d.Path, "/")+"/") {
			return true
		}
	}
	return false
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, strings.TrimSuffix(line, "/"))
		}
	}
	return patterns, scanner.Err()
}
