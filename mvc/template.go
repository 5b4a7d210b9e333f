package mvc

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sync"
)

// Template is a located template ready to render a view.
type Template interface {
	Execute(w io.Writer, v *View) error
}

// TemplateFunc adapts a function to the Template interface.
type TemplateFunc func(w io.Writer, v *View) error

// Execute implements Template.
func (f TemplateFunc) Execute(w io.Writer, v *View) error {
	return f(w, v)
}

// TemplateSource locates templates. Lookup tries root + name + suffix for
// each root in order and returns the first template that exists.
type TemplateSource interface {
	Lookup(name string, roots []string, suffix string) (Template, bool)
}

// TemplateMap is an in-memory TemplateSource keyed by full template path.
type TemplateMap map[string]Template

// Lookup implements TemplateSource.
func (m TemplateMap) Lookup(name string, roots []string, suffix string) (Template, bool) {
	for _, root := range roots {
		if t, ok := m[root+name+suffix]; ok {
			return t, true
		}
	}
	return nil, false
}

// HTMLTemplates is a TemplateSource backed by html/template files in an
// fs.FS. Parsed templates are cached per path.
//
// Besides the functions passed to NewHTMLTemplates, every template can call:
//
//	element "name" [vars]   render a shared element
//	setLayoutVar "k" value  set a layout variable on the owning controller
//	layoutVar "k"           read a layout variable
//	var "k"                 read a view variable
//	dict "k" v ...          build a map, typically for element vars
type HTMLTemplates struct {
	fsys  fs.FS
	funcs template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewHTMLTemplates creates a template source reading from fsys. funcs may
// be nil.
func NewHTMLTemplates(fsys fs.FS, funcs template.FuncMap) *HTMLTemplates {
	return &HTMLTemplates{
		fsys:  fsys,
		funcs: funcs,
		cache: make(map[string]*template.Template),
	}
}

// Lookup implements TemplateSource. A file that exists but fails to parse
// is still returned; the parse error surfaces when it is executed.
func (t *HTMLTemplates) Lookup(name string, roots []string, suffix string) (Template, bool) {
	for _, root := range roots {
		p := root + name + suffix
		if _, err := fs.Stat(t.fsys, p); err != nil {
			continue
		}

		tmpl, err := t.load(p)
		if err != nil {
			return brokenTemplate{err: err}, true
		}
		return htmlTemplate{tmpl: tmpl}, true
	}
	return nil, false
}

func (t *HTMLTemplates) load(p string) (*template.Template, error) {
	t.mu.RLock()
	tmpl, ok := t.cache[p]
	t.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if tmpl, ok := t.cache[p]; ok {
		return tmpl, nil
	}

	tmpl, err := template.New(path.Base(p)).
		Funcs(viewFuncStubs).
		Funcs(t.funcs).
		ParseFS(t.fsys, p)
	if err != nil {
		return nil, err
	}

	t.cache[p] = tmpl
	return tmpl, nil
}

type htmlTemplate struct {
	tmpl *template.Template
}

// Execute runs a clone of the cached template with functions bound to v.
// The cached template itself is never executed so it can keep being cloned.
func (h htmlTemplate) Execute(w io.Writer, v *View) error {
	clone, err := h.tmpl.Clone()
	if err != nil {
		return err
	}
	return clone.Funcs(v.templateFuncs()).Execute(w, v.Vars())
}

type brokenTemplate struct {
	err error
}

func (b brokenTemplate) Execute(io.Writer, *View) error {
	return b.err
}

// viewFuncStubs declares the per-view functions so templates parse; the
// real implementations are bound per render by View.templateFuncs.
var viewFuncStubs = template.FuncMap{
	"element":      func(string, ...map[string]any) (template.HTML, error) { return "", nil },
	"setLayoutVar": func(string, any) string { return "" },
	"layoutVar":    func(string) any { return nil },
	"var":          func(string) any { return nil },
	"dict":         dict,
}

func (v *View) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"element": func(name string, vars ...map[string]any) (template.HTML, error) {
			var data map[string]any
			if len(vars) > 0 {
				data = vars[0]
			}
			out, err := v.RenderElement(name, data)
			// Elements are rendered by this package's own templates.
			return template.HTML(out), err //nolint:gosec
		},
		"setLayoutVar": func(name string, value any) string {
			v.SetLayoutVar(name, value)
			return ""
		},
		"layoutVar": v.LayoutVar,
		"var":       v.Var,
	}
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
