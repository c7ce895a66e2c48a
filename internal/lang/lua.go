package lang

func init() {
	Register(&LanguageSpec{
		Language:          Lua,
		FilePatterns:      []string{"*.lua"},
		FunctionNodeTypes: []string{"function_declaration"},
		CallNodeTypes:     []string{"function_call"},
		ImportNodeTypes:   []string{"function_call"},
		ImportSeparator:   ".",
	})
}
