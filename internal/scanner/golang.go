package scanner

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
)

func init() {
	registerDialect(lang.Go, dialect{
		rootScope:   goPackageScope,
		methodScope: goReceiverScope,
		imports:     goImports,
	})
}

// goPackageScope scopes every definition in a file under its package name.
func goPackageScope(root *tree_sitter.Node, src []byte) []string {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() != "package_clause" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			if id := child.NamedChild(j); id != nil && id.Kind() == "package_identifier" {
				return []string{parser.NodeText(id, src)}
			}
		}
	}
	return nil
}

// goReceiverScope places a method under its receiver type: func (s *Server) Run()
// is defined as Server::Run.
func goReceiverScope(e *extraction, n *tree_sitter.Node) []string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return nil
	}
	var name string
	parser.Walk(recv, func(c *tree_sitter.Node) bool {
		if name != "" {
			return false
		}
		if c.Kind() == "type_identifier" {
			name = parser.NodeText(c, e.src)
			return false
		}
		return true
	})
	if name == "" {
		return nil
	}
	return []string{name}
}

func goImports(e *extraction, n *tree_sitter.Node) ([]importRec, bool) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return nil, true
	}
	scope, key := fqn.Path(unquote(parser.NodeText(pathNode, e.src)), "/")
	if key == "" {
		return nil, true
	}
	return []importRec{{table: TableImports, scope: scope, key: key, at: pathNode}}, true
}
