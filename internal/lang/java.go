package lang

func init() {
	Register(&LanguageSpec{
		Language:          Java,
		FilePatterns:      []string{"*.java"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"enum_declaration",
			"record_declaration",
			"annotation_type_declaration",
		},
		CallNodeTypes:       []string{"method_invocation", "object_creation_expression"},
		ImportNodeTypes:     []string{"import_declaration"},
		AssignmentNodeTypes: []string{"assignment_expression", "variable_declarator"},
		ImportSeparator:     ".",
	})
}
