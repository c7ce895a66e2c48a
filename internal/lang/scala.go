package lang

func init() {
	Register(&LanguageSpec{
		Language:          Scala,
		FilePatterns:      []string{"*.scala", "*.sc"},
		FunctionNodeTypes: []string{"function_definition", "function_declaration"},
		ClassNodeTypes: []string{
			"class_definition",
			"object_definition",
			"trait_definition",
		},
		CallNodeTypes:   []string{"call_expression"},
		ImportNodeTypes: []string{"import_declaration"},
		ImportSeparator: ".",
	})
}
