package lang

func init() {
	Register(&LanguageSpec{
		Language:          Kotlin,
		FilePatterns:      []string{"*.kt", "*.kts"},
		FunctionNodeTypes: []string{"function_declaration"},
		ClassNodeTypes:    []string{"class_declaration", "object_declaration"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import"},
		ImportSeparator:   ".",
	})
}
