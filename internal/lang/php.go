package lang

func init() {
	Register(&LanguageSpec{
		Language:          PHP,
		FilePatterns:      []string{"*.php"},
		FunctionNodeTypes: []string{"function_definition", "method_declaration"},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"trait_declaration",
			"enum_declaration",
		},
		CallNodeTypes: []string{
			"function_call_expression",
			"member_call_expression",
			"scoped_call_expression",
			"object_creation_expression",
		},
		ImportNodeTypes:     []string{"namespace_use_clause"},
		AssignmentNodeTypes: []string{"assignment_expression"},
		ImportSeparator:     "\\",
	})
}
