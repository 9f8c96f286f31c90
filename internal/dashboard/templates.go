package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templateFuncs = template.FuncMap{
	"formatDuration": formatDuration,
}

var overviewTemplate = template.Must(
	template.New("overview.html").Funcs(templateFuncs).ParseFS(templateFiles, "templates/overview.html"),
)

// formatDuration renders a duration in seconds as a human-readable string,
// matching the granularity an operator glancing at uptime cares about.
func formatDuration(seconds float64) string {
	d := int(seconds)
	if d < 60 {
		return fmt.Sprintf("%ds", d)
	}
	if d < 3600 {
		return fmt.Sprintf("%dm %ds", d/60, d%60)
	}
	hours := d / 3600
	mins := (d % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// render executes the overview template into a buffer, writing the
// result only on success so a template error never leaks a half
// written page to the client.
func (s *Server) render(w http.ResponseWriter, r *http.Request, data Snapshot) {
	var buf bytes.Buffer
	if err := overviewTemplate.ExecuteTemplate(&buf, "overview.html", data); err != nil {
		s.logger.Error("dashboard template render failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
