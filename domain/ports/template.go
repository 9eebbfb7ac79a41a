package ports

// TemplateEngine expands variables in a manifest before it is parsed.
type TemplateEngine interface {
	// Render processes raw manifest bytes. Variables are available to the
	// template as {{.vars.NAME}}.
	Render(raw []byte, vars map[string]string) ([]byte, error)
}
