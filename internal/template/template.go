package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Context holds the variables available to hook commands.
type Context struct {
	SessionID string
	Topic     string
	// Status is "completed" or "failed"; empty before the session runs.
	Status        string
	AnalysisScore float64
	IdeasScore    float64
	OutputDir     string
	Timestamp     string

	// User-defined variables from the hook configuration
	Vars map[string]string
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.Topic}}, {{.Vars.channel}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Funcs(template.FuncMap{
		"score": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}
