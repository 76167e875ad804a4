package treeconf

import "fmt"

// variant is one alternative of a group selector: either a sub-tree or an
// opaque scalar value.
type variant struct {
	node   *Config
	scalar any
}

// groupSelector holds the named variants of a grouped node and the active
// pointer. The variant set is fixed after construction; only the active
// name changes.
type groupSelector struct {
	names    []string // declaration order
	variants map[string]variant
	def      string
	active   string
}

func newGroupSelector(defaultName string) *groupSelector {
	return &groupSelector{
		variants: make(map[string]variant),
		def:      defaultName,
		active:   defaultName,
	}
}

func (g *groupSelector) add(name string, v variant) error {
	if _, dup := g.variants[name]; dup {
		return fmt.Errorf("%w: duplicate variant %q", ErrMisconfiguration, name)
	}
	g.names = append(g.names, name)
	g.variants[name] = v
	return nil
}

// check verifies the designated default names a declared variant.
func (g *groupSelector) check() error {
	if _, ok := g.variants[g.def]; !ok {
		return fmt.Errorf("%w: default variant %q is not declared", ErrMisconfiguration, g.def)
	}
	return nil
}

// switchTo updates the active pointer. O(1), no effect on other variants.
func (g *groupSelector) switchTo(name string) error {
	if _, ok := g.variants[name]; !ok {
		return fmt.Errorf("%w: variant %q does not exist", ErrOverride, name)
	}
	g.active = name
	return nil
}

// activeNode returns the active variant's sub-tree, or nil when the active
// variant is a scalar.
func (g *groupSelector) activeNode() *Config {
	return g.variants[g.active].node
}

// activeScalar returns the active variant's scalar value. The second return
// is false when the active variant is a sub-tree.
func (g *groupSelector) activeScalar() (any, bool) {
	v := g.variants[g.active]
	if v.node != nil {
		return nil, false
	}
	return v.scalar, true
}

func (g *groupSelector) clone() *groupSelector {
	cp := &groupSelector{
		names:    append([]string(nil), g.names...),
		variants: make(map[string]variant, len(g.variants)),
		def:      g.def,
		active:   g.active,
	}
	for name, v := range g.variants {
		if v.node != nil {
			cp.variants[name] = variant{node: v.node.Clone()}
		} else {
			cp.variants[name] = v
		}
	}
	return cp
}
