package treeconf

import "errors"

// Exported error categories returned by this package. All are used with
// wrapping so callers can detect error classes with errors.Is.
//   - ErrMisconfiguration: the declared tree itself is invalid (duplicate or
//     malformed child names, a group without its default variant, mixing
//     specification mechanisms).
//   - ErrOverride: an override token or structured override references an
//     unknown path, names an undeclared variant, or targets a node that
//     cannot accept that kind of override.
//   - ErrMissingArgument: a required field is still unspecified after merge
//     and reference resolution.
//   - ErrValidation: a field-level or node-level validator rejected the
//     final value.
//   - ErrOverridesNotFound: the structured override file does not exist.
var (
	ErrMisconfiguration  = errors.New("invalid configuration tree")
	ErrOverride          = errors.New("invalid override")
	ErrMissingArgument   = errors.New("missing required argument")
	ErrValidation        = errors.New("validation failed")
	ErrOverridesNotFound = errors.New("overrides file not found")
)

// MaxValueSize caps the length of a single override value taken from the
// environment, guarding against pathological inputs.
const MaxValueSize = 64 * 1024
