package lang

func init() {
	Register(&LanguageSpec{
		Language:     JavaScript,
		FilePatterns: []string{"*.js", "*.jsx", "*.mjs", "*.cjs"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
		},
		ClassNodeTypes:      []string{"class_declaration"},
		CallNodeTypes:       []string{"call_expression", "new_expression"},
		ImportNodeTypes:     []string{"import_statement"},
		AssignmentNodeTypes: []string{"assignment_expression", "augmented_assignment_expression", "variable_declarator"},
		ImportSeparator:     "/",
	})
}
