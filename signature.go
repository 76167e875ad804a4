package treeconf

import "reflect"

// Param describes one parameter of a callable: its name, declared type,
// and default value. It is the data form of a function signature, since Go
// reflection cannot recover parameter names.
type Param struct {
	Name string
	Type reflect.Type
	// Default is the parameter's default value; ignored unless HasDefault
	// is set. A parameter without a default becomes a required field.
	Default    any
	HasDefault bool
	Help       string
}

// FromParams builds a node whose fields mirror a parameter list: one field
// per parameter, typed from the declaration, with the parameter default as
// the field default. Parameters without defaults become required fields.
// The resulting node cannot be extended with Define or Variant.
func FromParams(params []Param) *Config {
	c := New()
	c.fromSig = true

	for _, p := range params {
		opts := []FieldOption{WithHelp(p.Help)}
		if p.Type != nil {
			opts = append(opts, WithType(p.Type))
		}
		if p.HasDefault {
			opts = append(opts, WithDefault(p.Default))
		}
		c.define(p.Name, NewField(opts...))
	}
	return c
}
