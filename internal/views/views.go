// Package views renders the server-side HTML pages from embedded templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/sousadfs/supermercado-happe/internal/models"
)

//go:embed templates/*.html
var content embed.FS

// Data is the payload every page template receives.
type Data struct {
	Title   string
	User    *models.User
	Flashes map[string][]string
	// CSRFField is the hidden input injected into every form.
	CSRFField template.HTML
	// Token carries the reset token for the reset-password form action.
	Token string
}

// Renderer holds the parsed page templates, each page combined with the
// shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var pageNames = []string{"login", "signup", "forgot", "reset", "profile", "error"}

// New parses the embedded templates.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(content, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the named page to w.
func (r *Renderer) Render(w io.Writer, name string, data Data) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
