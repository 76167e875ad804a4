package treeconf

import "fmt"

// ResolveReferences evaluates reference functions across the active
// subtree, top-down in a single pass. A reference reading another
// referenced field observes that field's pre-resolution value unless the
// tree declares references in dependency order; there is no fixed-point
// iteration and no cycle detection. References recompute unconditionally,
// so they replace explicit overrides of the same field.
func (c *Config) ResolveReferences() {
	c.resolveReferences(c)
}

func (c *Config) resolveReferences(root *Config) {
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			active.resolveReferences(root)
		}
		return
	}

	for _, ch := range c.children {
		switch {
		case ch.field != nil && ch.field.reference != nil:
			ch.field.value = ch.field.reference(c)
		case ch.field != nil && ch.field.refRoot != nil:
			ch.field.value = ch.field.refRoot(root)
		case ch.node != nil:
			ch.node.resolveReferences(root)
		}
	}
}

// CheckRequired fails with the full dotted path of the first visible field
// whose value is still Unspecified. Inactive variants are not checked.
func (c *Config) CheckRequired() error {
	return c.checkRequired("")
}

func (c *Config) checkRequired(prefix string) error {
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.checkRequired(prefix)
		}
		return nil
	}

	for _, ch := range c.children {
		if ch.field != nil {
			if IsUnspecified(ch.field.value) {
				return fmt.Errorf("%w: %q", ErrMissingArgument, prefix+ch.name)
			}
			continue
		}
		if err := ch.node.checkRequired(prefix + ch.name + "."); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs the node validator, then the children in declaration
// order: per-field validators for fields, recursion for sub-trees. Node
// validators run before the validators of their descendants. For grouped
// nodes only the active variant is validated.
func (c *Config) Validate() error {
	if err := c.Err(); err != nil {
		return err
	}
	return c.validateTree("")
}

func (c *Config) validateTree(prefix string) error {
	if c.validate != nil && !c.validate(c) {
		return fmt.Errorf("%w: node validator rejected %v", ErrValidation, c.ToMap())
	}

	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.validateTree(prefix)
		}
		return nil
	}

	for _, ch := range c.children {
		if ch.field != nil {
			if ch.field.validate != nil && !ch.field.validate(ch.field.value) {
				return fmt.Errorf("%w: value %v rejected for %q", ErrValidation, ch.field.value, prefix+ch.name)
			}
			continue
		}
		if err := ch.node.validateTree(prefix + ch.name + "."); err != nil {
			return err
		}
	}
	return nil
}
