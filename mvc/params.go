package mvc

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Params is an ordered set of action parameters. Named parameters keep their
// insertion order; positional parameters use decimal keys ("0", "1", ...).
//
// A nil *Params behaves as an empty set for every read method.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams builds a Params from alternating key/value pairs. It panics if
// the pairs are odd in number or a key is not a string.
func NewParams(pairs ...any) *Params {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("mvc: NewParams needs key/value pairs, got %d values", len(pairs)))
	}

	p := &Params{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("mvc: NewParams key %v is not a string", pairs[i]))
		}
		p.Set(key, pairs[i+1])
	}

	return p
}

// PositionalParams builds a Params whose keys are the value indexes.
func PositionalParams(values ...any) *Params {
	p := &Params{values: make(map[string]any, len(values))}
	for i, v := range values {
		p.Set(strconv.Itoa(i), v)
	}
	return p
}

// ParamsFromMap builds a Params from m, ordering keys lexically since maps
// carry no order of their own.
func ParamsFromMap(m map[string]any) *Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Params{values: make(map[string]any, len(m))}
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the parameter names in order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present, even with a nil value.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Value returns the value stored under key or nil.
func (p *Params) Value(key string) any {
	v, _ := p.Get(key)
	return v
}

// String returns the value under key formatted as a string. Missing and nil
// values yield "".
func (p *Params) String(key string) string {
	return stringify(p.Value(key))
}

// Set stores v under key. New keys are appended to the order; existing keys
// keep their position.
func (p *Params) Set(key string, v any) *Params {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return p
}

// Values returns the parameter values in order, nil when there are none.
func (p *Params) Values() []any {
	if p.Len() == 0 {
		return nil
	}
	out := make([]any, len(p.keys))
	for i, k := range p.keys {
		out[i] = p.values[k]
	}
	return out
}

// Clone returns an independent copy. Values themselves are not deep-copied.
func (p *Params) Clone() *Params {
	c := &Params{values: make(map[string]any, p.Len())}
	if p == nil {
		return c
	}
	c.keys = append(c.keys, p.keys...)
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Union returns a copy of p extended with every entry of other whose key is
// not already present in p. Existing keys always win.
func (p *Params) Union(other *Params) *Params {
	out := p.Clone()
	for _, k := range other.Keys() {
		if !out.Has(k) {
			out.Set(k, other.values[k])
		}
	}
	return out
}

// Map returns the parameters as an unordered map.
func (p *Params) Map() map[string]any {
	m := make(map[string]any, p.Len())
	if p == nil {
		return m
	}
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Bind decodes the parameters into dst, which must be a pointer to a struct
// or map. Struct fields may be named with a `param` tag; string values are
// converted to the field type where possible ("42" into an int field).
func (p *Params) Bind(dst any) error {
	return decodeInto(p.Map(), dst)
}

// MarshalYAML encodes the parameters as a mapping that keeps their order.
func (p *Params) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if p == nil {
		return node, nil
	}

	for _, k := range p.keys {
		var val yaml.Node
		if err := val.Encode(p.values[k]); err != nil {
			return nil, fmt.Errorf("mvc: encode param %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}

	return node, nil
}

// UnmarshalYAML decodes a mapping (named parameters, in document order) or a
// sequence (positional parameters).
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	*p = Params{values: make(map[string]any)}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var v any
			if err := node.Content[i+1].Decode(&v); err != nil {
				return err
			}
			p.Set(node.Content[i].Value, v)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			var v any
			if err := item.Decode(&v); err != nil {
				return err
			}
			p.Set(strconv.Itoa(i), v)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("mvc: params must be a mapping or a sequence, got %q", node.Value)
		}
	default:
		return fmt.Errorf("mvc: params must be a mapping or a sequence")
	}

	return nil
}

// Args are the values handed to an action. In positional mode they are the
// action params in order; in array mode Args holds a single *Params.
type Args []any

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Get returns argument i, or nil when out of range.
func (a Args) Get(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// String returns argument i formatted as a string.
func (a Args) String(i int) string {
	return stringify(a.Get(i))
}

// Int returns argument i converted to an int.
func (a Args) Int(i int) (int, error) {
	switch v := a.Get(i).(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	case nil:
		return 0, fmt.Errorf("mvc: argument %d is missing", i)
	default:
		return 0, fmt.Errorf("mvc: argument %d has type %T, not an integer", i, v)
	}
}

// Params returns the arguments as a *Params regardless of the binding mode:
// the single *Params in array mode, or positional params otherwise.
func (a Args) Params() *Params {
	if len(a) == 1 {
		if p, ok := a[0].(*Params); ok {
			return p
		}
	}
	return PositionalParams(a...)
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []string:
		if len(s) > 0 {
			return s[0]
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func decodeInto(input, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "param",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
