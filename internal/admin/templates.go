// ABOUTME: Template loading and rendering for admin UI.
// ABOUTME: Embeds HTML templates and renders each page inside the shared layout.

package admin

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

var pageTmpls map[string]*template.Template

var funcs = template.FuncMap{
	"join": strings.Join,
}

// pageDefinitions maps page names to their template files
func getPageDefinitions() map[string]string {
	return map[string]string{
		"dashboard":      "templates/dashboard.html",
		"list":           "templates/list.html",
		"form":           "templates/form.html",
		"import":         "templates/import.html",
		"not-configured": "templates/not_configured.html",
		"not-found":      "templates/not_found.html",
	}
}

// parsePageTemplates creates a map of page templates, each with its own copy of layout
func parsePageTemplates(layout *template.Template) map[string]*template.Template {
	templates := make(map[string]*template.Template)
	for name, path := range getPageDefinitions() {
		tmpl := template.Must(layout.Clone())
		templates[name] = template.Must(tmpl.ParseFS(templateFS, path))
	}
	return templates
}

func init() {
	layout := template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	pageTmpls = parsePageTemplates(layout)
}

func renderPage(w io.Writer, page string, data any) error {
	tmpl, ok := pageTmpls[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
