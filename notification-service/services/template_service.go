package services

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"os"
	"strings"
	"sync"
)

//go:embed templates/*.html
var builtinTemplates embed.FS

const layoutFile = "layout.html"

// TemplateService renders email bodies. Each template is parsed together
// with the shared layout and cached after first use.
type TemplateService struct {
	files fs.FS
	cache map[string]*template.Template
	mu    sync.RWMutex
}

// NewTemplateService reads templates from dir, or the built-in set when dir
// is empty.
func NewTemplateService(dir string) (*TemplateService, error) {
	var files fs.FS
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("template directory: %w", err)
		}
		files = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(builtinTemplates, "templates")
		if err != nil {
			return nil, err
		}
		files = sub
	}
	return &TemplateService{files: files, cache: map[string]*template.Template{}}, nil
}

// RenderTemplate executes the named template ("invitation" renders
// invitation.html) with data.
func (ts *TemplateService) RenderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := ts.load(name)
	if err != nil {
		return "", err
	}
	var rendered bytes.Buffer
	if err := tmpl.ExecuteTemplate(&rendered, "layout", data); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return rendered.String(), nil
}

// Subject renders only the template's title block.
func (ts *TemplateService) Subject(name string, data interface{}) (string, error) {
	tmpl, err := ts.load(name)
	if err != nil {
		return "", err
	}
	var subject bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "title", data); err != nil {
		return "", fmt.Errorf("rendering subject %s: %w", name, err)
	}
	return html.UnescapeString(strings.TrimSpace(subject.String())), nil
}

func (ts *TemplateService) load(name string) (*template.Template, error) {
	ts.mu.RLock()
	tmpl, ok := ts.cache[name]
	ts.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(ts.files, layoutFile, name+".html")
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}

	ts.mu.Lock()
	ts.cache[name] = tmpl
	ts.mu.Unlock()
	return tmpl, nil
}

// ClearCache drops parsed templates so edits on disk are picked up.
func (ts *TemplateService) ClearCache() {
	ts.mu.Lock()
	ts.cache = map[string]*template.Template{}
	ts.mu.Unlock()
}
