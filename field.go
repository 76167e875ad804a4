package treeconf

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type unspecified struct{}

func (unspecified) String() string { return "UNSPECIFIED" }

// Unspecified is the value of a field that has no default, no default
// factory, and has not been overridden. It is distinct from nil, which is a
// legitimate field value.
var Unspecified any = unspecified{}

// IsUnspecified reports whether v is the Unspecified sentinel.
func IsUnspecified(v any) bool {
	_, ok := v.(unspecified)
	return ok
}

// ConvertFunc turns a raw override string into a typed value.
type ConvertFunc func(raw string) (any, error)

// ValidateFunc reports whether a field value is acceptable.
type ValidateFunc func(value any) bool

// ReferenceFunc computes a field value from another part of the tree. It
// receives either the field's owning node or the tree root, depending on
// which option attached it.
type ReferenceFunc func(cfg *Config) any

// Field is a single leaf configuration slot.
type Field struct {
	typ        reflect.Type
	def        any
	factory    func() any
	hasDefault bool
	hasFactory bool
	convert    ConvertFunc
	validate   ValidateFunc
	reference  ReferenceFunc // relative to the owning node
	refRoot    ReferenceFunc // relative to the tree root
	help       string

	value any
	err   error
}

// FieldOption configures a Field at construction time.
type FieldOption func(*Field)

// WithDefault sets the field's default value. Mutually exclusive with
// WithFactory; a field with neither is required.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.def = v
		f.hasDefault = true
	}
}

// WithFactory sets a function producing the field's default value. Useful
// for mutable defaults that must not be shared between trees.
func WithFactory(fn func() any) FieldOption {
	return func(f *Field) {
		f.factory = fn
		f.hasFactory = true
	}
}

// WithType declares the field's type explicitly. When absent, the type is
// inferred from the default value.
func WithType(t reflect.Type) FieldOption {
	return func(f *Field) { f.typ = t }
}

// WithConvert sets the converter applied to raw override strings.
func WithConvert(fn ConvertFunc) FieldOption {
	return func(f *Field) { f.convert = fn }
}

// WithValidate sets the per-field validator, checked during the validation
// pass after overrides and reference resolution.
func WithValidate(fn ValidateFunc) FieldOption {
	return func(f *Field) { f.validate = fn }
}

// WithReference sets a reference function evaluated against the field's
// owning node. Takes precedence over WithRootReference when both are set.
func WithReference(fn ReferenceFunc) FieldOption {
	return func(f *Field) { f.reference = fn }
}

// WithRootReference sets a reference function evaluated against the tree
// root.
func WithRootReference(fn ReferenceFunc) FieldOption {
	return func(f *Field) { f.refRoot = fn }
}

// WithHelp sets the help text shown on the help page.
func WithHelp(text string) FieldOption {
	return func(f *Field) { f.help = text }
}

// NewField constructs a leaf field. A field with neither a default nor a
// factory starts at Unspecified and is required.
func NewField(opts ...FieldOption) *Field {
	f := &Field{value: Unspecified}
	for _, opt := range opts {
		opt(f)
	}

	if f.hasDefault && f.hasFactory {
		f.err = fmt.Errorf("%w: field declares both a default and a default factory", ErrMisconfiguration)
		return f
	}

	if f.hasDefault {
		f.value = f.def
	} else if f.hasFactory {
		f.value = f.factory()
	}

	if f.typ == nil && !IsUnspecified(f.value) && f.value != nil {
		f.typ = reflect.TypeOf(f.value)
	}

	return f
}

// Value returns the field's current value, which is Unspecified for a
// required field that has not been overridden.
func (f *Field) Value() any { return f.value }

// Type returns the field's declared or inferred type. Nil when unknown.
func (f *Field) Type() reflect.Type { return f.typ }

// Help returns the field's help text.
func (f *Field) Help() string { return f.help }

// defaultValue reports the value the field starts each run with: the
// default, the factory's product, or Unspecified.
func (f *Field) defaultValue() any {
	switch {
	case f.hasDefault:
		return f.def
	case f.hasFactory:
		return f.factory()
	default:
		return Unspecified
	}
}

// convertValue maps a raw override string to a typed value. Precedence:
// the field converter, then recognized literal tokens, then coercion to
// the declared type. Coercion failure falls back to the raw string so that
// foreign types never abort parsing.
func (f *Field) convertValue(raw string) (any, error) {
	if f.convert != nil {
		v, err := f.convert(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: converting %q: %w", ErrOverride, raw, err)
		}
		return v, nil
	}

	// Double quotes force a literal string.
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1], nil
	}

	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "none", "nil":
		return nil, nil
	}

	if f.typ != nil {
		if v, ok := coerce(raw, f.typ); ok {
			return v, nil
		}
	}

	return raw, nil
}

// convertStructured maps a string leaf from a structured source (file or
// map) to a typed value. Structured formats already carry typed booleans
// and nulls, so literal tokens and quote unwrapping do not apply: "true"
// stays the string "true" unless the declared type coerces it.
func (f *Field) convertStructured(raw string) (any, error) {
	if f.convert != nil {
		v, err := f.convert(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: converting %q: %w", ErrOverride, raw, err)
		}
		return v, nil
	}

	if f.typ != nil {
		if v, ok := coerce(raw, f.typ); ok {
			return v, nil
		}
	}

	return raw, nil
}

// clone copies the field, sharing converter, validator, and reference
// functions. Values are copied shallowly.
func (f *Field) clone() *Field {
	cp := *f
	return &cp
}

// coerce attempts to construct a value of type t from a raw string. The
// second return value is false when t cannot be built from raw.
func coerce(raw string, t reflect.Type) (any, bool) {
	if t == reflect.TypeOf(time.Duration(0)) {
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
		return nil, false
	}

	switch t.Kind() {
	case reflect.String:
		if t == reflect.TypeOf("") {
			return raw, true
		}
		return reflect.ValueOf(raw).Convert(t).Interface(), true

	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b, true
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Base 0 for auto-detection (e.g. "0xFF").
		if i, err := strconv.ParseInt(raw, 0, 64); err == nil {
			v := reflect.New(t).Elem()
			if !v.OverflowInt(i) {
				v.SetInt(i)
				return v.Interface(), true
			}
		} else if fl, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			// Scientific notation for integral fields ("1e3").
			if fl == float64(int64(fl)) {
				v := reflect.New(t).Elem()
				if !v.OverflowInt(int64(fl)) {
					v.SetInt(int64(fl))
					return v.Interface(), true
				}
			}
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u, err := strconv.ParseUint(raw, 0, 64); err == nil {
			v := reflect.New(t).Elem()
			if !v.OverflowUint(u) {
				v.SetUint(u)
				return v.Interface(), true
			}
		}

	case reflect.Float32, reflect.Float64:
		if fl, err := strconv.ParseFloat(raw, 64); err == nil {
			v := reflect.New(t).Elem()
			if !v.OverflowFloat(fl) {
				v.SetFloat(fl)
				return v.Interface(), true
			}
		}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			v := reflect.MakeSlice(t, len(parts), len(parts))
			for i, p := range parts {
				v.Index(i).SetString(strings.TrimSpace(p))
			}
			return v.Interface(), true
		}
	}

	return nil, false
}
