package lang

func init() {
	Register(&LanguageSpec{
		Language:            Go,
		FilePatterns:        []string{"*.go"},
		FunctionNodeTypes:   []string{"function_declaration", "method_declaration"},
		ClassNodeTypes:      []string{"type_spec", "type_alias"},
		CallNodeTypes:       []string{"call_expression"},
		ImportNodeTypes:     []string{"import_spec"},
		AssignmentNodeTypes: []string{"short_var_declaration", "assignment_statement"},
		ImportSeparator:     "/",
	})
}
