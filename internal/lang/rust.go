package lang

func init() {
	Register(&LanguageSpec{
		Language:          Rust,
		FilePatterns:      []string{"*.rs"},
		FunctionNodeTypes: []string{"function_item", "function_signature_item", "macro_definition"},
		ClassNodeTypes: []string{
			"struct_item",
			"enum_item",
			"trait_item",
			"union_item",
			"mod_item",
		},
		ScopeNodeTypes:      []string{"impl_item"},
		CallNodeTypes:       []string{"call_expression", "macro_invocation"},
		ImportNodeTypes:     []string{"use_declaration", "extern_crate_declaration"},
		AssignmentNodeTypes: []string{"assignment_expression", "compound_assignment_expr"},
		ImportSeparator:     "::",
	})
}
