// Command ast_debug prints the tree-sitter AST of one source file followed
// by the records the bundled scanner extracts from it.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
	"github.com/DeusData/starscope/internal/scanner"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func printAST(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s [%d] %q\n", prefix, node.Kind(), parser.Line(node), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), source, indent+1)
	}
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug FILE")
		os.Exit(2)
	}
	path := os.Args[1]

	spec := lang.ForFile(path)
	if spec == nil {
		fmt.Fprintf(os.Stderr, "no language for %s\n", path)
		os.Exit(1)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Printf("=== %s AST ===\n", strings.ToUpper(string(spec.Language)))
	tree, err := parser.Parse(spec.Language, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	printAST(tree.RootNode(), source, 0)
	tree.Close()

	// Syntax errors are tolerated here so broken files can still be inspected.
	ts, err := scanner.NewTreeSitter(spec.Language, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	records, err := ts.Extract(path, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Println("\n=== RECORDS ===")
	for _, r := range records {
		name := fqn.Join(r.Scope, r.Key)
		fmt.Printf("%-9s %4d  %-40s %s\n", r.Table, r.Line, name, r.Context)
	}
}
