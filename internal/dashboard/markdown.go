package dashboard

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
)

// RenderSummary converts a plugin's Markdown summary field to HTML for
// the overview page, matching SPEC_FULL.md §4.10's "plugin summary
// fields written in Markdown are rendered to HTML for this view"
// requirement. Transport's plugin-info command is unaffected — it
// keeps returning the raw string per spec.md §6.
func RenderSummary(markdown string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	return template.HTML(buf.String())
}
