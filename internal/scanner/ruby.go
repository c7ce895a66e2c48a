package scanner

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
)

func init() {
	registerDialect(lang.Ruby, dialect{
		methodScope: rubySingletonScope,
		imports:     rubyImports,
	})
}

// rubySingletonScope handles `def Foo.bar`; `def self.bar` stays in the
// enclosing class.
func rubySingletonScope(e *extraction, n *tree_sitter.Node) []string {
	if n.Kind() != "singleton_method" {
		return nil
	}
	obj := n.ChildByFieldName("object")
	if obj == nil || obj.Kind() == "self" {
		return nil
	}
	return e.chain(obj)
}

var rubyRequireMethods = map[string]bool{
	"require":          true,
	"require_relative": true,
	"load":             true,
	"autoload":         true,
}

var rubyIncludeMethods = map[string]bool{
	"include": true,
	"extend":  true,
	"prepend": true,
}

// rubyImports turns receiver-less require/include calls into requires and
// includes records. Other calls fall through to the calls table.
func rubyImports(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	if n.ChildByFieldName("receiver") != nil {
		return nil, false
	}
	method := n.ChildByFieldName("method")
	args := n.ChildByFieldName("arguments")
	if method == nil || args == nil {
		return nil, false
	}
	name := parser.NodeText(method, e.src)

	switch {
	case rubyRequireMethods[name]:
		text, at := firstString(args, e.src)
		if at == nil {
			return nil, false
		}
		scope, key := fqn.Path(strings.TrimSuffix(text, ".rb"), "/")
		if key == "" {
			return nil, false
		}
		return []importRec{{table: TableRequires, scope: scope, key: key, at: at}}, true

	case rubyIncludeMethods[name]:
		var recs []importRec
		for i := uint(0); i < args.NamedChildCount(); i++ {
			arg := args.NamedChild(i)
			if arg == nil {
				continue
			}
			comps := e.chain(arg)
			if len(comps) == 0 {
				continue
			}
			last := len(comps) - 1
			recs = append(recs, importRec{table: TableIncludes, scope: comps[:last], key: comps[last], at: arg})
		}
		if len(recs) == 0 {
			return nil, false
		}
		return recs, true
	}
	return nil, false
}
