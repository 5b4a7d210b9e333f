package routing

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Ref is a route value that is either a literal string or the index of a
// capture group in the route pattern. In YAML an integer is a capture
// index and anything else is a literal:
//
//	controller: 1        # first capture group
//	action: view         # literal
//	action_params:
//	  id: "1"            # literal string "1"
type Ref struct {
	Literal   string
	Index     int
	IsCapture bool
}

// Literal returns a Ref holding a constant value.
func Literal(s string) Ref {
	return Ref{Literal: s}
}

// Capture returns a Ref to capture group i.
func Capture(i int) Ref {
	return Ref{Index: i, IsCapture: true}
}

// IsZero reports whether the Ref is unset.
func (r Ref) IsZero() bool {
	return !r.IsCapture && r.Literal == ""
}

// String formats the Ref for display: "$1" for captures.
func (r Ref) String() string {
	if r.IsCapture {
		return "$" + strconv.Itoa(r.Index)
	}
	return r.Literal
}

// resolve returns the value of the Ref for a match. The boolean is false
// when the Ref points at a capture group that did not participate.
func (r Ref) resolve(path string, loc []int) (string, bool) {
	if !r.IsCapture {
		return r.Literal, true
	}
	return submatch(path, loc, r.Index)
}

func submatch(path string, loc []int, i int) (string, bool) {
	if i < 0 || 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return "", false
	}
	return path[loc[2*i]:loc[2*i+1]], true
}

// MarshalYAML encodes captures as integers and literals as strings.
func (r Ref) MarshalYAML() (any, error) {
	if r.IsCapture {
		return r.Index, nil
	}
	return r.Literal, nil
}

// UnmarshalYAML decodes an integer as a capture index and any other scalar
// as a literal.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: route value must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!int":
		i, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: capture index %q: %w", node.Line, node.Value, err)
		}
		if i < 0 {
			return fmt.Errorf("line %d: capture index %d is negative", node.Line, i)
		}
		*r = Capture(i)
	case "!!null":
		*r = Ref{}
	default:
		*r = Literal(node.Value)
	}

	return nil
}

// Param is one named action parameter of a route.
type Param struct {
	Name string
	Ref  Ref
}

// Params is the ordered action_params list of a route. In YAML it is a
// mapping of names to Refs, or a sequence of Refs for positional params.
type Params []Param

func (p Params) positional() bool {
	for i, param := range p {
		if param.Name != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// MarshalYAML encodes positional params as a sequence and named params as
// an ordered mapping.
func (p Params) MarshalYAML() (any, error) {
	if p.positional() {
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, param := range p {
			var val yaml.Node
			if err := val.Encode(param.Ref); err != nil {
				return nil, err
			}
			node.Content = append(node.Content, &val)
		}
		return node, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, param := range p {
		var val yaml.Node
		if err := val.Encode(param.Ref); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: param.Name},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping or a sequence of Refs.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	*p = nil

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var ref Ref
			if err := node.Content[i+1].Decode(&ref); err != nil {
				return err
			}
			*p = append(*p, Param{Name: node.Content[i].Value, Ref: ref})
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			var ref Ref
			if err := item.Decode(&ref); err != nil {
				return err
			}
			*p = append(*p, Param{Name: strconv.Itoa(i), Ref: ref})
		}
	default:
		return fmt.Errorf("line %d: action_params must be a mapping or a sequence", node.Line)
	}

	return nil
}
