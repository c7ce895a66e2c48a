// Package fqn splits and matches `::`-qualified symbol names.
package fqn

import "strings"

// Separator joins scope components in user-facing names, e.g. "File::mtime".
const Separator = "::"

// Split breaks a qualified name into its scope components and the innermost
// key. Empty components are dropped, so "::File::mtime" and "File::mtime"
// are the same pattern.
//
//	Split("Outer::Inner::name") = ([Outer Inner], "name")
//	Split("name")               = (nil, "name")
func Split(qualified string) (scope []string, key string) {
	parts := strings.Split(strings.TrimSpace(qualified), Separator)
	comps := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			comps = append(comps, p)
		}
	}
	if len(comps) == 0 {
		return nil, ""
	}
	return comps[:len(comps)-1], comps[len(comps)-1]
}

// Join renders scope components and a key as a qualified name.
func Join(scope []string, key string) string {
	if len(scope) == 0 {
		return key
	}
	return strings.Join(scope, Separator) + Separator + key
}

// HasSuffix reports whether scope ends with the exact component sequence
// suffix. An empty suffix matches every scope.
func HasSuffix(scope, suffix []string) bool {
	if len(suffix) > len(scope) {
		return false
	}
	off := len(scope) - len(suffix)
	for i, c := range suffix {
		if scope[off+i] != c {
			return false
		}
	}
	return true
}

// Path splits an import or require path into scope components and a key
// using sep, dropping empty and relative ("." / "..") components.
func Path(p, sep string) (scope []string, key string) {
	var comps []string
	for _, c := range strings.Split(p, sep) {
		c = strings.TrimSpace(c)
		if c == "" || c == "." || c == ".." {
			continue
		}
		comps = append(comps, c)
	}
	if len(comps) == 0 {
		return nil, ""
	}
	return comps[:len(comps)-1], comps[len(comps)-1]
}
