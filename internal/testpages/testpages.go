// Package testpages serves the synthetic HTML form pages used to exercise
// the scanner. Each page represents one form archetype the analyzer is
// expected to classify.
package testpages

import (
	"embed"
	"io/fs"
	"net/http"
	"sort"
	"strings"
)

//go:embed pages/*.html
var pagesFS embed.FS

// List returns the names of all available test pages, sorted.
func List() []string {
	entries, err := fs.ReadDir(pagesFS, "pages")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".html"))
	}
	sort.Strings(names)
	return names
}

// Handler serves the embedded pages. A request for /{name} resolves to
// pages/{name}.html.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.Trim(r.URL.Path, "/")
		if name == "" {
			serveIndex(w)
			return
		}
		if strings.Contains(name, "/") || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}

		data, err := pagesFS.ReadFile("pages/" + name + ".html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})
}

func serveIndex(w http.ResponseWriter) {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><title>Test Pages</title></head><body>\n<h1>Synthetic Form Pages</h1>\n<ul>\n")
	for _, name := range List() {
		sb.WriteString(`<li><a href="/pages/` + name + `">` + name + "</a></li>\n")
	}
	sb.WriteString("</ul>\n</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(sb.String()))
}
