package routing

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Route is one entry of a regex route table. Unset Controller and Action
// leave the request untouched so the front controller defaults apply.
type Route struct {
	// Pattern is a Go regular expression, optionally wrapped in delimiters
	// with trailing flags ("#^/page/(.*)$#i"). It is kept as written.
	Pattern string `yaml:"pattern,omitempty"`

	Controller   Ref    `yaml:"controller,omitempty"`
	Action       Ref    `yaml:"action,omitempty"`
	ActionParams Params `yaml:"action_params,omitempty"`

	// AdditionalParams names a capture group whose value is split on "/"
	// and appended to the action params as positional values.
	AdditionalParams Ref `yaml:"additional_params,omitempty"`

	// Redirect, when set, turns the route into a redirect. $1 or \1 insert
	// capture groups.
	Redirect string `yaml:"redirect,omitempty"`
	Status   int    `yaml:"status,omitempty"`

	re *regexp.Regexp
}

// Compile validates the route and compiles its pattern. Routers compile
// routes when they are added; calling it again is cheap.
func (r *Route) Compile() error {
	if r.Pattern == "" {
		return errors.New("route pattern is empty")
	}

	if !r.AdditionalParams.IsZero() && !r.AdditionalParams.IsCapture {
		return fmt.Errorf("route %q: additional_params must be a capture index", r.Pattern)
	}

	if r.Status != 0 && (r.Status < 300 || r.Status > 399) {
		return fmt.Errorf("route %q: redirect status %d is not a 3xx code", r.Pattern, r.Status)
	}

	re, err := compilePattern(r.Pattern)
	if err != nil {
		return fmt.Errorf("route %q: %w", r.Pattern, err)
	}

	if n := re.NumSubexp(); r.maxCapture() > n {
		return fmt.Errorf("route %q: references capture %d but the pattern has %d", r.Pattern, r.maxCapture(), n)
	}

	r.re = re
	return nil
}

func (r *Route) maxCapture() int {
	refs := []Ref{r.Controller, r.Action, r.AdditionalParams}
	for _, p := range r.ActionParams {
		refs = append(refs, p.Ref)
	}

	highest := 0
	for _, ref := range refs {
		if ref.IsCapture && ref.Index > highest {
			highest = ref.Index
		}
	}
	return highest
}

// RedirectStatus returns the configured redirect status or 302 Found.
func (r *Route) RedirectStatus() int {
	if r.Status == 0 {
		return http.StatusFound
	}
	return r.Status
}

// Table is an ordered list of routes. Order matters: the first matching
// route wins.
//
// The YAML form is a mapping from pattern to route, in priority order:
//
//	"#^/$#":
//	  controller: page
//	  action: view
//	  action_params:
//	    page_name: home
//	"#^/([^/]+)/([^/]+)/?(.*)$#":
//	  controller: 1
//	  action: 2
//	  additional_params: 3
//
// A sequence of routes carrying a pattern key is accepted as well.
type Table []*Route

// MarshalYAML encodes the table in its mapping form.
func (t Table) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, r := range t {
		entry := *r
		entry.Pattern = ""

		var val yaml.Node
		if err := val.Encode(&entry); err != nil {
			return nil, fmt.Errorf("encode route %q: %w", r.Pattern, err)
		}

		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Pattern},
			&val,
		)
	}

	return node, nil
}

// UnmarshalYAML decodes and compiles a table in mapping or sequence form.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	*t = nil

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			r := new(Route)
			if err := node.Content[i+1].Decode(r); err != nil {
				return err
			}
			r.Pattern = node.Content[i].Value
			*t = append(*t, r)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			r := new(Route)
			if err := item.Decode(r); err != nil {
				return err
			}
			*t = append(*t, r)
		}
	case yaml.ScalarNode:
		if node.ShortTag() != "!!null" {
			return fmt.Errorf("line %d: route table must be a mapping or a sequence", node.Line)
		}
	default:
		return fmt.Errorf("line %d: route table must be a mapping or a sequence", node.Line)
	}

	return t.Compile()
}

// Compile compiles every route of the table.
func (t Table) Compile() error {
	for _, r := range t {
		if err := r.Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes the table as YAML in mapping form.
func (t Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// ParseTable decodes and compiles a YAML route table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a YAML route table from a file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}

	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse route table %s: %w", path, err)
	}
	return t, nil
}

// DefaultTable returns the stock route table: "/" shows the home page,
// "/page/name" shows a page, "/controller/action/params..." dispatches
// directly and "/controller" runs the controller's index action.
func DefaultTable() Table {
	t := Table{
		{
			Pattern:      `#^/$#`,
			Controller:   Literal("page"),
			Action:       Literal("view"),
			ActionParams: Params{{Name: "page_name", Ref: Literal("home")}},
		},
		{
			Pattern:      `#^/page/(.*)$#`,
			Controller:   Literal("page"),
			Action:       Literal("view"),
			ActionParams: Params{{Name: "page_name", Ref: Capture(1)}},
		},
		{
			Pattern:          `#^/([^/]+)/([^/]+)/?(.*)$#`,
			Controller:       Capture(1),
			Action:           Capture(2),
			AdditionalParams: Capture(3),
		},
		{
			Pattern:    `#^/([^/]+)/?$#`,
			Controller: Capture(1),
			Action:     Literal("index"),
		},
	}

	if err := t.Compile(); err != nil {
		panic(err)
	}
	return t
}
