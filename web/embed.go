// Package web embeds the server-rendered forge page: its HTML templates and
// the small static bundle that keeps the progress view live.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every embedded template. Each file is addressable by its
// base name, e.g. "index.tmpl".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.tmpl")
}

// Funcs returns the helpers available to the templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
	}
}

// Static returns the embedded static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return sub
}
