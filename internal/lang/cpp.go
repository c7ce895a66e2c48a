package lang

func init() {
	Register(&LanguageSpec{
		Language:          CPP,
		FilePatterns:      []string{"*.cpp", "*.h", "*.hpp", "*.cc", "*.cxx", "*.hxx", "*.hh"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes: []string{
			"class_specifier",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
			"namespace_definition",
		},
		DefsNeedBody:        true,
		CallNodeTypes:       []string{"call_expression"},
		ImportNodeTypes:     []string{"preproc_include"},
		AssignmentNodeTypes: []string{"assignment_expression"},
		ImportSeparator:     "/",
	})
}
