package lang

func init() {
	Register(&LanguageSpec{
		Language:            C,
		FilePatterns:        []string{"*.c"},
		FunctionNodeTypes:   []string{"function_definition"},
		ClassNodeTypes:      []string{"struct_specifier", "enum_specifier", "union_specifier"},
		DefsNeedBody:        true,
		CallNodeTypes:       []string{"call_expression"},
		ImportNodeTypes:     []string{"preproc_include"},
		AssignmentNodeTypes: []string{"assignment_expression"},
		ImportSeparator:     "/",
	})
}
