package scanner

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
)

// Languages without a dialect entry use textualImport for their import
// nodes (Java, C#, PHP, Scala, Kotlin).
func init() {
	registerDialect(lang.Python, dialect{imports: pythonImports})
	registerDialect(lang.JavaScript, dialect{imports: sourceImports})
	registerDialect(lang.TypeScript, dialect{imports: sourceImports})
	registerDialect(lang.TSX, dialect{imports: sourceImports})
	registerDialect(lang.Rust, dialect{imports: rustImports})
	registerDialect(lang.C, dialect{imports: cIncludes})
	registerDialect(lang.CPP, dialect{imports: cIncludes})
	registerDialect(lang.Lua, dialect{imports: luaRequires})
	registerDialect(lang.Bash, dialect{imports: bashSources})
}

func pythonImports(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	var modules []*tree_sitter.Node
	if n.Kind() == "import_from_statement" {
		if m := n.ChildByFieldName("module_name"); m != nil {
			modules = append(modules, m)
		}
	} else {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			if child.Kind() == "aliased_import" {
				child = child.ChildByFieldName("name")
			}
			if child != nil && child.Kind() == "dotted_name" {
				modules = append(modules, child)
			}
		}
	}

	var recs []importRec
	for _, m := range modules {
		scope, key := fqn.Path(parser.NodeText(m, e.src), ".")
		if key == "" {
			continue
		}
		recs = append(recs, importRec{table: TableImports, scope: scope, key: key, at: m})
	}
	return recs, true
}

// sourceImports handles ES module imports: import x from "./lib/x".
func sourceImports(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return nil, true
	}
	scope, key := fqn.Path(unquote(parser.NodeText(src, e.src)), "/")
	if key == "" {
		return nil, true
	}
	return []importRec{{table: TableImports, scope: scope, key: key, at: src}}, true
}

func rustImports(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	var text string
	if n.Kind() == "extern_crate_declaration" {
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil, true
		}
		text = parser.NodeText(name, e.src)
	} else {
		arg := n.ChildByFieldName("argument")
		if arg == nil {
			return nil, true
		}
		text = parser.NodeText(arg, e.src)
	}
	if i := strings.Index(text, "{"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, " as "); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "*")
	scope, key := fqn.Path(text, "::")
	if key == "" {
		return nil, true
	}
	return []importRec{{table: TableImports, scope: scope, key: key}}, true
}

func cIncludes(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	p := n.ChildByFieldName("path")
	if p == nil {
		return nil, true
	}
	scope, key := fqn.Path(unquote(parser.NodeText(p, e.src)), "/")
	if key == "" {
		return nil, true
	}
	return []importRec{{table: TableImports, scope: scope, key: key, at: p}}, true
}

// luaRequires handles require("a.b") and require "a.b". Other calls fall
// through to the calls table.
func luaRequires(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	name := n.ChildByFieldName("name")
	if name == nil || parser.NodeText(name, e.src) != "require" {
		return nil, false
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return nil, false
	}
	text, at := firstString(args, e.src)
	if at == nil {
		return nil, false
	}
	scope, key := fqn.Path(text, ".")
	if key == "" {
		return nil, false
	}
	return []importRec{{table: TableRequires, scope: scope, key: key, at: at}}, true
}

// bashSources handles `source lib/x.sh` and `. lib/x.sh`.
func bashSources(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil, false
	}
	cmd := parser.NodeText(name, e.src)
	if cmd != "source" && cmd != "." {
		return nil, false
	}
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return nil, false
	}
	raw := parser.NodeText(arg, e.src)
	if strings.ContainsAny(raw, "$`") {
		return nil, false
	}
	scope, key := fqn.Path(unquote(raw), "/")
	if key == "" {
		return nil, false
	}
	return []importRec{{table: TableRequires, scope: scope, key: key, at: arg}}, true
}
