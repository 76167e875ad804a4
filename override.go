package treeconf

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// overrideToken is one parsed key/value pair from the token stream.
type overrideToken struct {
	key   string
	value string
}

// parsedArgs is the result of tokenizing a CLI argument list.
type parsedArgs struct {
	tokens        []overrideToken
	overridesFile string
	help          bool
}

// parseArgs tokenizes command-line arguments into key/value overrides.
// Accepted forms: "--key=value", "--key value", "--flag" (true), and
// "--no-flag" (false). "--overrides <path>" names a structured override
// file and is removed from the stream; "--help"/"-h" requests the help
// page.
func parseArgs(args []string) (parsedArgs, error) {
	var p parsedArgs

	i := 0
	for i < len(args) {
		arg := args[i]

		if arg == "--help" || arg == "-h" {
			p.help = true
			i++
			continue
		}
		if arg == "--" {
			i++ // separator
			continue
		}
		if !strings.HasPrefix(arg, "--") {
			return p, fmt.Errorf("%w: unexpected token %q", ErrOverride, arg)
		}

		content := strings.TrimPrefix(arg, "--")
		if content == "" {
			return p, fmt.Errorf("%w: empty option name", ErrOverride)
		}

		var key, value string
		hadValue := true
		if eq := strings.IndexByte(content, '='); eq >= 0 {
			key = content[:eq]
			value = content[eq+1:]
			i++
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			key = content
			value = args[i+1]
			i += 2
		} else {
			hadValue = false
			// Lone flag: boolean true, or false with the negation marker.
			key = content
			value = "true"
			if stripped, negated := strings.CutPrefix(key, "no-"); negated {
				key = stripped
				value = "false"
			}
			i++
		}

		if key == "" {
			return p, fmt.Errorf("%w: empty option name", ErrOverride)
		}

		if key == "overrides" {
			if !hadValue {
				return p, fmt.Errorf("%w: --overrides requires a file path", ErrOverride)
			}
			p.overridesFile = value
			continue
		}

		for _, segment := range strings.Split(key, ".") {
			if !isValidKeySegment(segment) {
				return p, fmt.Errorf("%w: invalid key segment %q in %q", ErrOverride, segment, key)
			}
		}

		p.tokens = append(p.tokens, overrideToken{key: key, value: value})
	}

	return p, nil
}

// Override applies token overrides left to right; later tokens for the
// same key win. A "--help" token prints the help tree to stdout and
// terminates the process. When any token fails, the tree is left
// unmodified: the batch is validated against a clone before being
// replayed.
func (c *Config) Override(args []string) error {
	if err := c.Err(); err != nil {
		return err
	}

	p, err := parseArgs(args)
	if err != nil {
		return err
	}
	if p.help {
		c.WriteHelp(os.Stdout, os.Args[0])
		os.Exit(0)
	}

	if p.overridesFile != "" {
		if err := c.LoadOverridesFile(p.overridesFile); err != nil {
			return err
		}
	}
	return c.overrideTokens(p.tokens)
}

func (c *Config) overrideTokens(tokens []overrideToken) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := c.Clone().applyTokens(tokens); err != nil {
		return err
	}
	return c.applyTokens(tokens)
}

func (c *Config) applyTokens(tokens []overrideToken) error {
	for _, tk := range tokens {
		if err := c.applyOverride(tk.key, tk.value, tk.key); err != nil {
			return err
		}
	}
	return nil
}

// applyOverride routes one dotted key to a field set or a group switch,
// per the merge rules: resolve the first segment against the node's own
// children, then the active variant's; a dotted remainder must land on a
// sub-tree.
func (c *Config) applyOverride(key, value, fullPath string) error {
	name, rest, nested := strings.Cut(key, ".")
	ch, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%w: key %q not found", ErrOverride, fullPath)
	}

	if nested {
		if ch.node == nil {
			return fmt.Errorf("%w: %q is not a section", ErrOverride, fullPath)
		}
		return ch.node.applyOverride(rest, value, fullPath)
	}

	if ch.field != nil {
		v, err := ch.field.convertValue(value)
		if err != nil {
			return fmt.Errorf("%w (key %q)", err, fullPath)
		}
		ch.field.value = v
		return nil
	}
	if ch.node.groups != nil {
		if err := ch.node.groups.switchTo(value); err != nil {
			return fmt.Errorf("%w (key %q)", err, fullPath)
		}
		return nil
	}
	return fmt.Errorf("%w: %q is a section without variants and cannot be overridden", ErrOverride, fullPath)
}

// OverrideMap applies structured overrides with the same shape as the
// flattened config. A string value on a grouped node switches the active
// variant; string leaf values pass through the field converter, other
// values are stored as-is. Like Override, a failing batch leaves the tree
// unmodified.
func (c *Config) OverrideMap(m map[string]any) error {
	if err := c.Err(); err != nil {
		return err
	}
	if len(m) == 0 {
		return nil
	}
	if err := c.Clone().applyMap(m, ""); err != nil {
		return err
	}
	return c.applyMap(m, "")
}

func (c *Config) applyMap(m map[string]any, prefix string) error {
	// Sorted for deterministic error attribution.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}

		ch, ok := c.lookup(k)
		if !ok {
			return fmt.Errorf("%w: key %q not found", ErrOverride, full)
		}

		switch val := m[k].(type) {
		case map[string]any:
			if ch.node == nil {
				return fmt.Errorf("%w: %q is not a section", ErrOverride, full)
			}
			if err := ch.node.applyMap(val, full); err != nil {
				return err
			}

		default:
			switch {
			case ch.field != nil:
				if s, isStr := val.(string); isStr {
					v, err := ch.field.convertStructured(s)
					if err != nil {
						return fmt.Errorf("%w (key %q)", err, full)
					}
					ch.field.value = v
				} else {
					ch.field.value = val
				}

			case ch.node.groups != nil:
				s, isStr := val.(string)
				if !isStr {
					return fmt.Errorf("%w: variant selection for %q must be a string, got %T", ErrOverride, full, val)
				}
				if err := ch.node.groups.switchTo(s); err != nil {
					return fmt.Errorf("%w (key %q)", err, full)
				}

			default:
				return fmt.Errorf("%w: %q is a section without variants and cannot be assigned", ErrOverride, full)
			}
		}
	}
	return nil
}
