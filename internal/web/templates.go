package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

const layoutTemplate = "layout.html"

// pageTemplates are the page file names served by the site.
var pageTemplates = []string{"index", "success", "legal"}

// overlayFS serves files from dir when present and from base otherwise.
type overlayFS struct {
	dir  fs.FS
	base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if o.dir != nil {
		f, err := o.dir.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return o.base.Open(name)
}

// loadTemplates parses the layout together with every page template. Files
// in overrideDir replace the embedded ones of the same name.
func loadTemplates(overrideDir string) (map[string]*template.Template, error) {
	base, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	source := overlayFS{base: base}
	if overrideDir != "" {
		source.dir = os.DirFS(overrideDir)
	}

	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := template.ParseFS(source, layoutTemplate, name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}
