package lang

func init() {
	Register(&LanguageSpec{
		Language:            Python,
		FilePatterns:        []string{"*.py", "*.pyi"},
		FunctionNodeTypes:   []string{"function_definition"},
		ClassNodeTypes:      []string{"class_definition"},
		CallNodeTypes:       []string{"call"},
		ImportNodeTypes:     []string{"import_statement", "import_from_statement"},
		AssignmentNodeTypes: []string{"assignment", "augmented_assignment"},
		ImportSeparator:     ".",
	})
}
