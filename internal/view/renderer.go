package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"growset/internal/poll/model"
)

var partials = []string{"head", "footer"}

// IndexPage is the data for the management listing.
type IndexPage struct {
	Polls []model.Summary
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
	"iso": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"join": strings.Join,
}

// Renderer merges a page template with the shared head and footer partials.
// Files are read on every call, so edits show up without a restart when the
// FS is backed by a directory.
type Renderer struct {
	FS fs.FS
}

func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{FS: fsys}
}

// Render executes the named page with data. Partials are available to the
// page as {{template "head" .}} and {{template "footer" .}}.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	page, err := fs.ReadFile(r.FS, name)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	t, err := template.New(name).Funcs(funcs).Parse(string(page))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	for _, p := range partials {
		file := "_" + p + ".html"
		src, err := fs.ReadFile(r.FS, file)
		if err != nil {
			return nil, fmt.Errorf("load partial %s: %w", file, err)
		}
		if _, err := t.New(p).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("parse partial %s: %w", file, err)
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
