package mvc

import (
	"fmt"
	"io"
	"strings"
)

// Config holds the process-wide settings of the dispatch pipeline. It is
// assembled once at startup and handed to NewRegistry by value; nothing in
// the package mutates it afterwards.
type Config struct {
	// ControllerViewPaths are the search roots for controller views, tried
	// in order. A view file is root + name + suffix.
	ControllerViewPaths  []string
	ControllerViewSuffix string

	LayoutViewPaths  []string
	LayoutViewSuffix string

	ElementViewPaths  []string
	ElementViewSuffix string

	// LayoutContentVarName is the layout variable receiving the rendered
	// controller view.
	LayoutContentVarName string

	// SendActionParamsAsArray selects how params reach an action: true
	// passes the whole *Params as the only argument, false spreads the
	// values positionally.
	SendActionParamsAsArray bool

	// DefaultControllerName, DefaultControllerActionName and
	// DefaultControllerActionParams apply when no router named a controller.
	DefaultControllerName         string
	DefaultControllerActionName   string
	DefaultControllerActionParams *Params

	// DefaultActionName applies when a controller was named but no action.
	DefaultActionName string
}

// DefaultConfig returns the stock configuration: the "page" controller's
// "view" action showing the "home" page, "index" as default action, and
// ".tmpl" templates.
func DefaultConfig() Config {
	return Config{
		ControllerViewSuffix:          ".tmpl",
		LayoutViewSuffix:              ".tmpl",
		ElementViewSuffix:             ".tmpl",
		LayoutContentVarName:          "layoutContent",
		DefaultControllerName:         "page",
		DefaultControllerActionName:   "view",
		DefaultControllerActionParams: NewParams("page_name", "home"),
		DefaultActionName:             "index",
	}
}

// Dump writes a human readable listing of the search paths and defaults.
func (c Config) Dump(w io.Writer) error {
	var b strings.Builder

	section := func(title string, paths []string, suffix string) {
		fmt.Fprintf(&b, "%s paths:\n", title)
		for _, p := range paths {
			fmt.Fprintf(&b, "  %s\n", p)
		}
		fmt.Fprintf(&b, "%s suffix: %s\n\n", title, suffix)
	}

	section("Controller view", c.ControllerViewPaths, c.ControllerViewSuffix)
	section("Layout view", c.LayoutViewPaths, c.LayoutViewSuffix)
	section("Element view", c.ElementViewPaths, c.ElementViewSuffix)

	fmt.Fprintf(&b, "Layout content var: %s\n", c.LayoutContentVarName)
	fmt.Fprintf(&b, "Send action params as array: %t\n", c.SendActionParamsAsArray)
	fmt.Fprintf(&b, "Default controller: %s\n", c.DefaultControllerName)
	fmt.Fprintf(&b, "Default controller action: %s\n", c.DefaultControllerActionName)
	fmt.Fprintf(&b, "Default controller action params:")
	for _, k := range c.DefaultControllerActionParams.Keys() {
		fmt.Fprintf(&b, " %s=%s", k, c.DefaultControllerActionParams.String(k))
	}
	fmt.Fprintf(&b, "\nDefault action: %s\n", c.DefaultActionName)

	_, err := io.WriteString(w, b.String())
	return err
}
