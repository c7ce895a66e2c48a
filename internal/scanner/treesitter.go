package scanner

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/starscope/internal/fqn"
	"github.com/DeusData/starscope/internal/lang"
	"github.com/DeusData/starscope/internal/parser"
)

const maxContextLen = 200

// dialect holds the language-specific pieces of extraction. Nil hooks fall
// back to the generic behaviour.
type dialect struct {
	// rootScope seeds the scope of every record in the file.
	rootScope func(root *tree_sitter.Node, src []byte) []string
	// methodScope adds qualifiers to a function definition's own scope
	// (Go receivers, Ruby `def Foo.bar`).
	methodScope func(e *extraction, n *tree_sitter.Node) []string
	// imports turns an import-like node into records. ok=false lets the
	// node fall through to call handling.
	imports func(e *extraction, n *tree_sitter.Node) (recs []importRec, ok bool)
}

type importRec struct {
	table string
	scope []string
	key   string
	at    *tree_sitter.Node
}

var dialects = map[lang.Language]dialect{}

func registerDialect(l lang.Language, d dialect) {
	dialects[l] = d
}

// TreeSitter is a Scanner driven by a lang.LanguageSpec.
type TreeSitter struct {
	spec        *lang.LanguageSpec
	d           dialect
	allowErrors bool

	funcTypes   map[string]bool
	classTypes  map[string]bool
	scopeTypes  map[string]bool
	callTypes   map[string]bool
	importTypes map[string]bool
	assignTypes map[string]bool
}

// NewTreeSitter builds a scanner for a registered language.
func NewTreeSitter(l lang.Language, allowSyntaxErrors bool) (*TreeSitter, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("no language spec for %s", l)
	}
	if !parser.Supported(l) {
		return nil, fmt.Errorf("no grammar for %s", l)
	}
	return &TreeSitter{
		spec:        spec,
		d:           dialects[l],
		allowErrors: allowSyntaxErrors,
		funcTypes:   toSet(spec.FunctionNodeTypes),
		classTypes:  toSet(spec.ClassNodeTypes),
		scopeTypes:  toSet(spec.ScopeNodeTypes),
		callTypes:   toSet(spec.CallNodeTypes),
		importTypes: toSet(spec.ImportNodeTypes),
		assignTypes: toSet(spec.AssignmentNodeTypes),
	}, nil
}

// Language returns the language this scanner handles.
func (s *TreeSitter) Language() lang.Language {
	return s.spec.Language
}

// Extract parses content and walks the tree once, emitting defs, calls,
// imports/requires/includes and assigns.
func (s *TreeSitter) Extract(path string, content []byte) ([]Record, error) {
	content = stripBOM(content)

	tree, err := parser.Parse(s.spec.Language, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !s.allowErrors {
		if bad := parser.FirstError(root); bad != nil {
			return nil, &SyntaxError{Path: path, Line: parser.Line(bad)}
		}
	}

	e := &extraction{s: s, src: content, lines: bytes.Split(content, []byte("\n"))}
	var scope []string
	if s.d.rootScope != nil {
		scope = s.d.rootScope(root, content)
	}
	e.visit(root, scope)
	return e.records, nil
}

type extraction struct {
	s       *TreeSitter
	src     []byte
	lines   [][]byte
	records []Record
}

func (e *extraction) visit(n *tree_sitter.Node, scope []string) {
	kind := n.Kind()
	childScope := scope

	switch {
	case e.s.classTypes[kind]:
		if e.s.spec.DefsNeedBody && n.ChildByFieldName("body") == nil {
			break
		}
		if nameNode := defNameNode(n); nameNode != nil {
			comps := e.nameComponents(nameNode)
			if len(comps) > 0 {
				last := len(comps) - 1
				e.emit(TableDefs, nameNode, concat(scope, comps[:last]), comps[last])
				childScope = concat(scope, comps)
			}
		}
	case e.s.funcTypes[kind]:
		if nameNode := defNameNode(n); nameNode != nil {
			comps := e.nameComponents(nameNode)
			if len(comps) > 0 {
				var extra []string
				if e.s.d.methodScope != nil {
					extra = e.s.d.methodScope(e, n)
				}
				last := len(comps) - 1
				e.emit(TableDefs, nameNode, concat(scope, extra, comps[:last]), comps[last])
			}
		}
	case e.s.scopeTypes[kind]:
		target := n.ChildByFieldName("type")
		if target == nil {
			target = n.ChildByFieldName("name")
		}
		if comps := e.chain(target); len(comps) > 0 {
			childScope = concat(scope, comps)
		}
	}

	handled := false
	if e.s.importTypes[kind] {
		handled = e.visitImport(n)
	}
	if !handled && e.s.callTypes[kind] {
		if key, recv, at := e.callTarget(n); key != "" {
			e.emit(TableCalls, at, recv, key)
		}
	}
	if e.s.assignTypes[kind] {
		for _, target := range assignTargets(n) {
			e.emit(TableAssigns, target, scope, parser.NodeText(target, e.src))
		}
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil {
			e.visit(child, childScope)
		}
	}
}

func (e *extraction) visitImport(n *tree_sitter.Node) bool {
	var recs []importRec
	var ok bool
	if e.s.d.imports != nil {
		recs, ok = e.s.d.imports(e, n)
	} else {
		recs, ok = e.textualImport(n)
	}
	for _, r := range recs {
		at := r.at
		if at == nil {
			at = n
		}
		e.emit(r.table, at, r.scope, r.key)
	}
	return ok
}

// textualImport handles languages whose import nodes are a keyword
// followed by a dotted path (Java, C#, Scala, Kotlin, PHP use clauses).
func (e *extraction) textualImport(n *tree_sitter.Node) ([]importRec, bool) {
	text := parser.NodeText(n, e.src)
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	for _, kw := range []string{"import ", "using ", "use ", "static "} {
		text = strings.TrimSpace(strings.TrimPrefix(text, kw))
	}
	if i := strings.Index(text, "="); i >= 0 {
		// using Alias = Some.Namespace
		text = strings.TrimSpace(text[i+1:])
	}
	if i := strings.IndexAny(text, "{("); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, " as "); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimRight(text, ".*_\\ ")
	text = strings.TrimLeft(text, "\\")
	scope, key := fqn.Path(text, e.s.spec.ImportSeparator)
	if key == "" {
		return nil, true
	}
	return []importRec{{table: TableImports, scope: scope, key: key}}, true
}

// callTarget resolves the called name and its receiver chain.
func (e *extraction) callTarget(n *tree_sitter.Node) (key string, recv []string, at *tree_sitter.Node) {
	// Receiver-style calls: Ruby (method/receiver), Java (name/object),
	// PHP scoped calls (name/scope).
	for _, f := range [][2]string{{"method", "receiver"}, {"name", "object"}, {"name", "scope"}} {
		nameNode := n.ChildByFieldName(f[0])
		if nameNode == nil {
			continue
		}
		recvNode := n.ChildByFieldName(f[1])
		if recvNode == nil && f[0] == "name" {
			continue
		}
		return parser.NodeText(nameNode, e.src), e.chain(recvNode), nameNode
	}

	var callee *tree_sitter.Node
	for _, field := range []string{"function", "constructor", "macro", "type", "name"} {
		if callee = n.ChildByFieldName(field); callee != nil {
			break
		}
	}
	if callee == nil {
		callee = n.NamedChild(0)
	}
	if callee == nil {
		return "", nil, nil
	}
	if comps := e.chain(callee); len(comps) > 0 {
		last := len(comps) - 1
		return comps[last], concat(comps[:last]), callee
	}
	if id := lastIdentifier(callee); id != nil {
		return parser.NodeText(id, e.src), nil, id
	}
	return "", nil, nil
}

// nameComponents returns the components of a definition's name node,
// e.g. `Foo::Bar` (Ruby) or `ns::Type::method` (C++).
func (e *extraction) nameComponents(n *tree_sitter.Node) []string {
	if comps := e.chain(n); len(comps) > 0 {
		return comps
	}
	text := strings.TrimSpace(parser.NodeText(n, e.src))
	if !validKey(text) {
		return nil
	}
	return []string{text}
}

var identKinds = toSet([]string{
	"identifier", "constant", "field_identifier", "property_identifier",
	"private_property_identifier", "type_identifier", "simple_identifier",
	"package_identifier", "namespace_identifier", "name", "word",
	"command_name", "self", "this", "super", "instance_variable",
	"class_variable", "global_variable", "setter", "operator_name",
	"destructor_name",
})

// chain flattens a plain name chain (a.b.c, A::B, x->y) into components.
// It returns nil when any link is not a simple name, e.g. a call with
// arguments or a literal receiver.
func (e *extraction) chain(n *tree_sitter.Node) []string {
	if n == nil {
		return nil
	}
	kind := n.Kind()
	if identKinds[kind] {
		return []string{parser.NodeText(n, e.src)}
	}
	switch kind {
	case "scope_resolution":
		return e.pair(n, "scope", "name")
	case "call":
		// Ruby argument-less call inside a receiver chain: a.b.c
		if n.ChildByFieldName("arguments") != nil || n.ChildByFieldName("block") != nil {
			return nil
		}
		if n.ChildByFieldName("method") == nil {
			return nil
		}
		return e.pair(n, "receiver", "method")
	case "selector_expression":
		return e.pair(n, "operand", "field")
	case "member_expression":
		return e.pair(n, "object", "property")
	case "attribute":
		return e.pair(n, "object", "attribute")
	case "field_access":
		return e.pair(n, "object", "field")
	case "field_expression":
		if n.ChildByFieldName("value") != nil {
			return e.pair(n, "value", "field")
		}
		return e.pair(n, "argument", "field")
	case "scoped_identifier", "scoped_type_identifier":
		if n.ChildByFieldName("path") != nil {
			return e.pair(n, "path", "name")
		}
		return e.pair(n, "scope", "name")
	case "qualified_identifier":
		return e.pair(n, "scope", "name")
	case "dot_index_expression":
		return e.pair(n, "table", "field")
	case "method_index_expression":
		return e.pair(n, "table", "method")
	case "member_access_expression":
		return e.pair(n, "expression", "name")
	case "qualified_name":
		if n.ChildByFieldName("qualifier") != nil {
			return e.pair(n, "qualifier", "name")
		}
		return splitName(parser.NodeText(n, e.src))
	case "generic_type":
		if t := n.ChildByFieldName("type"); t != nil {
			return e.chain(t)
		}
		return e.chain(n.NamedChild(0))
	case "navigation_expression":
		head := e.chain(n.NamedChild(0))
		if head == nil {
			return nil
		}
		suffix := lastNamedChild(n)
		if suffix == nil || suffix.Kind() != "navigation_suffix" {
			return nil
		}
		id := lastIdentifier(suffix)
		if id == nil {
			return nil
		}
		return append(head, parser.NodeText(id, e.src))
	case "nested_identifier", "stable_identifier", "dotted_name", "namespace_name":
		return splitName(parser.NodeText(n, e.src))
	}
	return nil
}

// pair chains a left (qualifier) field and a right (name) field. A missing
// left side is allowed (`::Foo`); a non-plain left side is not.
func (e *extraction) pair(n *tree_sitter.Node, left, right string) []string {
	r := n.ChildByFieldName(right)
	if r == nil {
		return nil
	}
	var head []string
	if l := n.ChildByFieldName(left); l != nil {
		if head = e.chain(l); head == nil {
			return nil
		}
	}
	tail := e.chain(r)
	if tail == nil {
		return nil
	}
	return concat(head, tail)
}

func (e *extraction) emit(table string, at *tree_sitter.Node, scope []string, key string) {
	key = strings.TrimSpace(key)
	if !validKey(key) {
		return
	}
	line := parser.Line(at)
	e.records = append(e.records, Record{
		Table:   table,
		Key:     key,
		Scope:   concat(scope),
		Line:    line,
		Context: e.context(line),
	})
}

func (e *extraction) context(line int) string {
	if line < 1 || line > len(e.lines) {
		return ""
	}
	text := strings.TrimSpace(string(e.lines[line-1]))
	if len(text) <= maxContextLen {
		return text
	}
	cut := maxContextLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// defNameNode returns the name node for a definition. Handles C/C++ where
// the name sits inside nested declarators, and grammars without a "name"
// field (Kotlin).
func defNameNode(n *tree_sitter.Node) *tree_sitter.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Kind() {
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"parenthesized_declarator", "array_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil {
				next = lastNamedChild(d)
			}
			if next == nil || next.Equals(*d) {
				return nil
			}
			d = next
		default:
			return d
		}
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "simple_identifier", "type_identifier", "identifier":
			return child
		}
	}
	return nil
}

// assignTargets returns the plain identifiers assigned by an assignment
// node; member and index targets are skipped.
func assignTargets(n *tree_sitter.Node) []*tree_sitter.Node {
	left := n.ChildByFieldName("left")
	if left == nil {
		left = n.ChildByFieldName("name")
	}
	if left == nil {
		return nil
	}
	if identKinds[left.Kind()] {
		return []*tree_sitter.Node{left}
	}
	switch left.Kind() {
	case "expression_list", "pattern_list", "tuple_pattern", "left_assignment_list":
		var out []*tree_sitter.Node
		for i := uint(0); i < left.NamedChildCount(); i++ {
			if c := left.NamedChild(i); c != nil && identKinds[c.Kind()] {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// lastIdentifier returns the rightmost identifier-like named child, or the
// node itself when it is one.
func lastIdentifier(n *tree_sitter.Node) *tree_sitter.Node {
	if identKinds[n.Kind()] {
		return n
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		child := n.NamedChild(uint(i))
		if child != nil && identKinds[child.Kind()] {
			return child
		}
	}
	return nil
}

func lastNamedChild(n *tree_sitter.Node) *tree_sitter.Node {
	count := n.NamedChildCount()
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}

// firstString returns the first string-literal descendant's unquoted text.
func firstString(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	var text string
	var at *tree_sitter.Node
	parser.Walk(n, func(c *tree_sitter.Node) bool {
		if at != nil {
			return false
		}
		switch c.Kind() {
		case "string", "string_literal", "interpreted_string_literal",
			"raw_string_literal", "system_lib_string", "raw_string":
			raw := parser.NodeText(c, src)
			if strings.Contains(raw, "#{") || strings.Contains(raw, "${") {
				return false
			}
			text, at = unquote(raw), c
			return false
		}
		return true
	})
	return text, at
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`<>[]")
}

// splitName splits a dotted/namespaced name on any separator it uses.
func splitName(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ':' || r == '\\' || unicode.IsSpace(r)
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// validKey rejects text that is clearly not a symbol name (multi-line
// expressions, lambdas, empty strings).
func validKey(s string) bool {
	if s == "" || len(s) > 256 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n(){};,")
}

func concat(parts ...[]string) []string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

// stripBOM removes a UTF-8 BOM (0xEF 0xBB 0xBF) from the start of source.
func stripBOM(source []byte) []byte {
	if len(source) >= 3 && source[0] == 0xEF && source[1] == 0xBB && source[2] == 0xBF {
		return source[3:]
	}
	return source
}
