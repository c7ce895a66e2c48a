package lang

func init() {
	Register(&LanguageSpec{
		Language:     CSharp,
		FilePatterns: []string{"*.cs"},
		FunctionNodeTypes: []string{
			"method_declaration",
			"constructor_declaration",
			"local_function_statement",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"struct_declaration",
			"enum_declaration",
			"record_declaration",
			"namespace_declaration",
		},
		CallNodeTypes:       []string{"invocation_expression", "object_creation_expression"},
		ImportNodeTypes:     []string{"using_directive"},
		AssignmentNodeTypes: []string{"assignment_expression"},
		ImportSeparator:     ".",
	})
}
