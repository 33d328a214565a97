package web

import (
	"bytes"
	"errors"
	stdhtml "html"
	"html/template"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// TemplateEngine renders the layout, pages and partials under one directory.
// Pages live in pages/ and are parsed per render; everything else is shared.
type TemplateEngine struct {
	templatesDir string
	reload       bool // dev mode: reload on each request

	mu        sync.RWMutex
	templates *template.Template
}

// NewTemplateEngine creates a new template engine
func NewTemplateEngine(templatesDir string, reload bool) *TemplateEngine {
	return &TemplateEngine{
		templatesDir: templatesDir,
		reload:       reload,
	}
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, errors.New("dict: odd number of arguments")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, errors.New("dict: keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"lower":    strings.ToLower,
		"add":      func(a, b int) int { return a + b },
		"markdown": Markdown,
	}
}

// Markdown renders model output as HTML. Raw HTML in the input is dropped
// and links or images whose URL is not http, https or mailto collapse to
// their text.
func Markdown(text string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags:          html.CommonFlags | html.SkipHTML | html.HrefTargetBlank,
		RenderNodeHook: dropUnsafeLinks,
	})
	return template.HTML(markdown.ToHTML([]byte(text), p, r)) //nolint:gosec // markup and unsafe URLs are stripped
}

// dropUnsafeLinks skips the tag of an unsafe link or image; its children
// still render as plain text.
func dropUnsafeLinks(_ io.Writer, node ast.Node, _ bool) (ast.WalkStatus, bool) {
	switch n := node.(type) {
	case *ast.Link:
		return ast.GoToNext, !IsSafeURL(string(n.Destination))
	case *ast.Image:
		return ast.GoToNext, !IsSafeURL(string(n.Destination))
	}
	return ast.GoToNext, false
}

// IsSafeURL reports whether dest may be used as an href or src. Entities are
// decoded first, the way the renderer and the browser both do.
func IsSafeURL(dest string) bool {
	u, err := url.Parse(strings.TrimSpace(stdhtml.UnescapeString(dest)))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

// Load parses all templates outside pages/.
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Funcs(Funcs())

	err := filepath.Walk(te.templatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && info.Name() == "pages" {
			return filepath.SkipDir
		}

		if !info.IsDir() && filepath.Ext(path) == ".html" {
			_, err = tmpl.ParseFiles(path)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	te.mu.Lock()
	te.templates = tmpl
	te.mu.Unlock()
	return nil
}

func (te *TemplateEngine) base() (*template.Template, error) {
	if te.reload {
		if err := te.Load(); err != nil {
			return nil, err
		}
	}
	te.mu.RLock()
	defer te.mu.RUnlock()
	if te.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	return te.templates, nil
}

func (te *TemplateEngine) page(name string) (*template.Template, error) {
	base, err := te.base()
	if err != nil {
		return nil, err
	}
	tmpl, err := base.Clone()
	if err != nil {
		return nil, err
	}
	return tmpl.ParseFiles(filepath.Join(te.templatesDir, "pages", name+".html"))
}

// Render renders a page inside the layout.
func (te *TemplateEngine) Render(w io.Writer, name string, data any) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return execute(w, tmpl, "layout", data)
}

// RenderContent renders only the content template without layout (for HTMX).
func (te *TemplateEngine) RenderContent(w io.Writer, name string, data any) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return execute(w, tmpl, "content", data)
}

// RenderPartial renders a named shared template. It executes a clone
// because html/template refuses to clone a set that has already run.
func (te *TemplateEngine) RenderPartial(w io.Writer, name string, data any) error {
	base, err := te.base()
	if err != nil {
		return err
	}
	tmpl, err := base.Clone()
	if err != nil {
		return err
	}
	return execute(w, tmpl, name, data)
}

// execute buffers the output so a failing template never sends half a page.
func execute(w io.Writer, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
