package mvc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// View is one render of a template against a variable scope. It keeps a
// back reference to the controller that created it so templates can reach
// the controller's layout variables and render elements. A View is only
// valid during the render call that uses it.
type View struct {
	name       string
	tmpl       Template
	vars       map[string]any
	controller *PageController
}

// newView copies vars into a fresh scope so a template cannot alter the
// caller's variables.
func newView(name string, tmpl Template, vars map[string]any, c *PageController) *View {
	scope := make(map[string]any, len(vars))
	for k, v := range vars {
		scope[k] = v
	}
	return &View{name: name, tmpl: tmpl, vars: scope, controller: c}
}

// Name returns the template identifier the view was looked up with.
func (v *View) Name() string {
	return v.name
}

// Vars returns the variable scope exposed to the template.
func (v *View) Vars() map[string]any {
	return v.vars
}

// Var returns a single variable from the scope.
func (v *View) Var(name string) any {
	return v.vars[name]
}

// Controller returns the controller that owns this render.
func (v *View) Controller() *PageController {
	return v.controller
}

// Output renders the template into w.
func (v *View) Output(w io.Writer) error {
	if err := v.tmpl.Execute(w, v); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return &Error{
			Kind:    KindRender,
			Message: fmt.Sprintf("Unable to render view %q: %v", v.name, err),
			Err:     err,
		}
	}
	return nil
}

// String renders the template and returns the output.
func (v *View) String() (string, error) {
	var buf bytes.Buffer
	if err := v.Output(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderElement renders a shared element with its own variables. Elements
// are optional page parts: when no element template exists the miss is
// logged and the element renders as "".
func (v *View) RenderElement(name string, vars map[string]any) (string, error) {
	c := v.controller
	if c == nil {
		return "", nil
	}

	tmpl, ok := c.templates.Lookup(name, c.cfg.ElementViewPaths, c.cfg.ElementViewSuffix)
	if !ok {
		c.logger.Warn("unable to render element",
			"element", name,
			"view", v.name,
			"controller", c.name,
		)
		return "", nil
	}

	return newView(name, tmpl, vars, c).String()
}

// SetLayoutVar sets a layout variable on the owning controller.
func (v *View) SetLayoutVar(name string, value any) {
	if v.controller != nil {
		v.controller.SetLayoutVar(name, value)
	}
}

// LayoutVar reads a layout variable from the owning controller.
func (v *View) LayoutVar(name string) any {
	if v.controller == nil {
		return nil
	}
	return v.controller.LayoutVar(name)
}
