package lang

func init() {
	Register(typeScriptSpec(TSX, []string{"*.tsx"}))
}
