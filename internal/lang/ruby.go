package lang

func init() {
	Register(&LanguageSpec{
		Language: Ruby,
		FilePatterns: []string{
			"*.rb", "*.rake", "*.gemspec", "*.ru",
			"Rakefile", "Gemfile", "Guardfile", "Capfile",
		},
		FunctionNodeTypes: []string{
			"method",
			"singleton_method",
		},
		ClassNodeTypes:      []string{"class", "module"},
		CallNodeTypes:       []string{"call"},
		ImportNodeTypes:     []string{"call"},
		AssignmentNodeTypes: []string{"assignment", "operator_assignment"},
		ImportSeparator:     "/",
	})
}
