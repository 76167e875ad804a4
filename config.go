package treeconf

import (
	"fmt"
	"strings"
)

// child is one named entry of a node: exactly one of field or node is set.
// Raw values passed to Define are wrapped into a Field at declaration time.
type child struct {
	name  string
	field *Field
	node  *Config
}

// Config is a composite configuration node: an ordered mapping of named
// children, an optional node validator, and an optional group selector.
// Exactly one of explicit children, a group selector, or from-parameters
// construction may be used per node.
type Config struct {
	children []*child
	index    map[string]int
	groups   *groupSelector
	validate func(*Config) bool
	fromSig  bool

	err error
}

// New creates an empty node to be populated with Define.
func New() *Config {
	return &Config{index: make(map[string]int)}
}

// NewGroup creates a grouped node whose children come from the active
// variant. defaultVariant names the initially active variant; it must be
// declared with Variant before the tree is used.
func NewGroup(defaultVariant string) *Config {
	c := New()
	c.groups = newGroupSelector(defaultVariant)
	return c
}

// Define adds a named child in declaration order. The value may be a
// *Field, a *Config sub-tree, or any other value, which is auto-wrapped
// into a field with that value as its default. Returns the receiver for
// chaining; declaration errors are recorded and surfaced by Err and by
// every subsequent operation.
func (c *Config) Define(name string, v any) *Config {
	if c.groups != nil {
		c.setErr(fmt.Errorf("%w: cannot mix explicit fields with a group selector", ErrMisconfiguration))
		return c
	}
	if c.fromSig {
		c.setErr(fmt.Errorf("%w: cannot mix explicit fields with from-parameters construction", ErrMisconfiguration))
		return c
	}
	c.define(name, v)
	return c
}

func (c *Config) define(name string, v any) {
	if !isValidKeySegment(name) {
		c.setErr(fmt.Errorf("%w: invalid field name %q", ErrMisconfiguration, name))
		return
	}
	if _, dup := c.index[name]; dup {
		c.setErr(fmt.Errorf("%w: duplicate field %q", ErrMisconfiguration, name))
		return
	}

	ch := &child{name: name}
	switch t := v.(type) {
	case *Field:
		ch.field = t
	case *Config:
		ch.node = t
	default:
		ch.field = NewField(WithDefault(v))
	}

	c.index[name] = len(c.children)
	c.children = append(c.children, ch)
}

// Variant adds a named variant to a grouped node. The value may be a
// *Config sub-tree or any scalar, in which case the node contributes that
// scalar directly to snapshots while the variant is active.
func (c *Config) Variant(name string, v any) *Config {
	if c.groups == nil {
		c.setErr(fmt.Errorf("%w: Variant on a node without a group selector", ErrMisconfiguration))
		return c
	}
	if !isValidKeySegment(name) {
		c.setErr(fmt.Errorf("%w: invalid variant name %q", ErrMisconfiguration, name))
		return c
	}

	var vt variant
	if node, ok := v.(*Config); ok {
		vt.node = node
	} else {
		vt.scalar = v
	}
	if err := c.groups.add(name, vt); err != nil {
		c.setErr(err)
	}
	return c
}

// WithValidator sets the whole-node validator, called with the node itself
// after overrides and reference resolution.
func (c *Config) WithValidator(fn func(*Config) bool) *Config {
	c.validate = fn
	return c
}

func (c *Config) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Err returns the first declaration error recorded anywhere in the tree,
// or nil when the tree is well formed.
func (c *Config) Err() error {
	if c.err != nil {
		return c.err
	}
	for _, ch := range c.children {
		if ch.field != nil && ch.field.err != nil {
			return ch.field.err
		}
		if ch.node != nil {
			if err := ch.node.Err(); err != nil {
				return err
			}
		}
	}
	if c.groups != nil {
		if err := c.groups.check(); err != nil {
			return err
		}
		for _, name := range c.groups.names {
			if v := c.groups.variants[name]; v.node != nil {
				if err := v.node.Err(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lookup resolves a child name against the node's own children, falling
// back to the active variant's children for grouped nodes.
func (c *Config) lookup(name string) (*child, bool) {
	if i, ok := c.index[name]; ok {
		return c.children[i], true
	}
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.lookup(name)
		}
	}
	return nil, false
}


// Get retrieves the value at a dotted path. Fields yield their current
// value (Unspecified when required and unset), sub-trees their flattened
// map, and scalar-active grouped nodes the scalar itself. The second
// return reports whether the path resolves.
func (c *Config) Get(path string) (any, bool) {
	name, rest, nested := strings.Cut(path, ".")
	ch, ok := c.lookup(name)
	if !ok {
		return nil, false
	}

	if nested {
		if ch.node == nil {
			return nil, false
		}
		return ch.node.Get(rest)
	}

	if ch.field != nil {
		return ch.field.value, true
	}
	return ch.node.effectiveValue(), true
}

// Set stores a value at a dotted path without conversion or validation
// (validation is centralized in the validation pass). On a grouped node a
// string value switches the active variant.
func (c *Config) Set(path string, value any) error {
	if err := c.Err(); err != nil {
		return err
	}
	return c.set(path, value, path)
}

func (c *Config) set(path string, value any, fullPath string) error {
	name, rest, nested := strings.Cut(path, ".")
	ch, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%w: key %q not found", ErrOverride, fullPath)
	}

	if nested {
		if ch.node == nil {
			return fmt.Errorf("%w: %q is not a section", ErrOverride, fullPath)
		}
		return ch.node.set(rest, value, fullPath)
	}

	if ch.field != nil {
		ch.field.value = value
		return nil
	}
	if ch.node.groups != nil {
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: variant selection for %q must be a string, got %T", ErrOverride, fullPath, value)
		}
		if err := ch.node.groups.switchTo(name); err != nil {
			return fmt.Errorf("%w for %q", err, fullPath)
		}
		return nil
	}
	return fmt.Errorf("%w: %q is a section and cannot be assigned", ErrOverride, fullPath)
}

// effectiveValue is the value a node contributes to its parent's snapshot:
// the active scalar for scalar-active grouped nodes, the flattened map
// otherwise.
func (c *Config) effectiveValue() any {
	if c.groups != nil {
		if scalar, ok := c.groups.activeScalar(); ok {
			return scalar
		}
	}
	return c.ToMap()
}

// ToMap flattens the active subtree into a plain nested map. Inactive
// variants are not represented.
func (c *Config) ToMap() map[string]any {
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.ToMap()
		}
		return map[string]any{}
	}

	m := make(map[string]any, len(c.children))
	for _, ch := range c.children {
		if ch.field != nil {
			m[ch.name] = ch.field.value
		} else {
			m[ch.name] = ch.node.effectiveValue()
		}
	}
	return m
}

// Clone deep-copies the tree, including the active-variant pointers and
// current field values. Converter, validator, and reference functions are
// carried by reference; scalar values are copied shallowly.
func (c *Config) Clone() *Config {
	cp := &Config{
		children: make([]*child, len(c.children)),
		index:    make(map[string]int, len(c.index)),
		validate: c.validate,
		fromSig:  c.fromSig,
		err:      c.err,
	}
	for name, i := range c.index {
		cp.index[name] = i
	}
	for i, ch := range c.children {
		nch := &child{name: ch.name}
		if ch.field != nil {
			nch.field = ch.field.clone()
		} else {
			nch.node = ch.node.Clone()
		}
		cp.children[i] = nch
	}
	if c.groups != nil {
		cp.groups = c.groups.clone()
	}
	return cp
}
