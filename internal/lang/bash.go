package lang

func init() {
	Register(&LanguageSpec{
		Language:            Bash,
		FilePatterns:        []string{"*.sh", "*.bash"},
		FunctionNodeTypes:   []string{"function_definition"},
		CallNodeTypes:       []string{"command"},
		ImportNodeTypes:     []string{"command"},
		AssignmentNodeTypes: []string{"variable_assignment"},
		ImportSeparator:     "/",
	})
}
