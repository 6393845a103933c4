// Package pages holds the static informational pages (About, Contact, Docs)
// as embedded Markdown, with a sanitized HTML rendering for the web UI.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/aretw0/synthex/pkg/domain"
)

//go:embed content/*.md
var content embed.FS

// Static lists the pages backed by a Markdown file.
var Static = []domain.Page{domain.PageAbout, domain.PageContact, domain.PageDocs}

var (
	renderOnce sync.Once
	rendered   map[domain.Page]template.HTML
	renderErr  error
)

// Markdown returns the source of a static page.
func Markdown(page domain.Page) ([]byte, error) {
	data, err := content.ReadFile("content/" + string(page) + ".md")
	if err != nil {
		return nil, fmt.Errorf("unknown page %q: %w", page, err)
	}
	return data, nil
}

// HTML returns the sanitized HTML of a static page. Rendering happens once.
func HTML(page domain.Page) (template.HTML, error) {
	renderOnce.Do(func() {
		rendered, renderErr = renderAll()
	})
	if renderErr != nil {
		return "", renderErr
	}
	html, ok := rendered[page]
	if !ok {
		return "", fmt.Errorf("unknown page %q", page)
	}
	return html, nil
}

// Render converts Markdown to sanitized HTML.
func Render(src []byte) (template.HTML, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	safe := bluemonday.UGCPolicy().SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

func renderAll() (map[domain.Page]template.HTML, error) {
	out := make(map[domain.Page]template.HTML, len(Static))
	for _, page := range Static {
		src, err := Markdown(page)
		if err != nil {
			return nil, err
		}
		html, err := Render(src)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", page, err)
		}
		out[page] = html
	}
	return out, nil
}
