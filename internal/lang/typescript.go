package lang

func typeScriptSpec(l Language, patterns []string) *LanguageSpec {
	return &LanguageSpec{
		Language:     l,
		FilePatterns: patterns,
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
			"function_signature",
			"abstract_method_signature",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"abstract_class_declaration",
			"interface_declaration",
			"enum_declaration",
			"internal_module",
		},
		CallNodeTypes:       []string{"call_expression", "new_expression"},
		ImportNodeTypes:     []string{"import_statement"},
		AssignmentNodeTypes: []string{"assignment_expression", "augmented_assignment_expression", "variable_declarator"},
		ImportSeparator:     "/",
	}
}

func init() {
	Register(typeScriptSpec(TypeScript, []string{"*.ts", "*.mts", "*.cts"}))
}
