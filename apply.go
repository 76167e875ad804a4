package treeconf

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Source identifies an override source, used to define layering precedence.
type Source string

const (
	// SourceDefault represents the declared default values.
	SourceDefault Source = "default"
	// SourceFile represents structured overrides from a file or map.
	SourceFile Source = "file"
	// SourceEnv represents overrides from environment variables.
	SourceEnv Source = "env"
	// SourceCLI represents overrides from command-line tokens.
	SourceCLI Source = "cli"
)

// EnvTransformFunc converts a dotted field path to an environment variable
// name.
type EnvTransformFunc func(path string) string

// ApplyOptions configures how an apply cycle layers its override sources.
type ApplyOptions struct {
	// Sources defines the precedence order (first = highest priority).
	// Default: [SourceCLI, SourceEnv, SourceFile, SourceDefault].
	Sources []Source

	// EnvPrefix is prepended to environment variable names, e.g. "MYAPP_"
	// maps "server.port" to "MYAPP_SERVER_PORT".
	EnvPrefix string

	// EnvTransform customizes how paths map to environment variables.
	// Nil uses the default transformation (dots to underscores, uppercase).
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which paths are checked for env vars (nil = all).
	EnvWhitelist map[string]bool

	// OverridesFile is a structured override file (YAML, TOML, or JSON).
	// A "--overrides" token in the argument list takes precedence.
	OverridesFile string

	// Overrides is a structured override map supplied in code, layered at
	// the SourceFile position below any override file.
	Overrides map[string]any
}

// DefaultApplyOptions returns the standard apply options.
func DefaultApplyOptions() ApplyOptions {
	return ApplyOptions{
		Sources: []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault},
	}
}

// Apply is the recommended entry point: it merges overrides from all
// sources with default precedence, resolves references, checks required
// fields, and validates, in that fixed order. args is the raw token list
// (e.g. os.Args[1:]); it is always passed explicitly.
func (c *Config) Apply(args []string) error {
	return c.ApplyWithOptions(args, DefaultApplyOptions())
}

// ApplyWithOptions runs the apply cycle with a custom source policy.
// When the overrides file does not exist, the remaining sources still
// layer and the full resolve/required/validate sequence still runs; the
// ErrOverridesNotFound sentinel is returned afterwards so the caller
// decides whether the absent file is fatal.
func (c *Config) ApplyWithOptions(args []string, opts ApplyOptions) error {
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

	file := opts.OverridesFile
	if p.overridesFile != "" {
		file = p.overridesFile
	}

	if len(opts.Sources) == 0 {
		opts.Sources = DefaultApplyOptions().Sources
	}

	// Layer sources in reverse so the first listed source wins.
	var fileErr error
	for i := len(opts.Sources) - 1; i >= 0; i-- {
		switch opts.Sources[i] {
		case SourceDefault:
			// Declared defaults are already in place.

		case SourceFile:
			if opts.Overrides != nil {
				if err := c.OverrideMap(opts.Overrides); err != nil {
					return err
				}
			}
			if file != "" {
				if err := c.LoadOverridesFile(file); err != nil {
					if !errors.Is(err, ErrOverridesNotFound) {
						return err
					}
					// Absent file: skip only this layer, report at the end.
					fileErr = err
				}
			}

		case SourceEnv:
			if err := c.applyEnv(opts); err != nil {
				return err
			}

		case SourceCLI:
			if err := c.overrideTokens(p.tokens); err != nil {
				return err
			}
		}
	}

	c.ResolveReferences()
	if err := c.CheckRequired(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return fileErr
}

// FieldPaths returns the dotted paths of all fields visible through the
// currently active variants, in declaration order.
func (c *Config) FieldPaths() []string {
	return c.fieldPaths("", nil)
}

func (c *Config) fieldPaths(prefix string, acc []string) []string {
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.fieldPaths(prefix, acc)
		}
		return acc
	}
	for _, ch := range c.children {
		if ch.field != nil {
			acc = append(acc, prefix+ch.name)
		} else {
			acc = ch.node.fieldPaths(prefix+ch.name+".", acc)
		}
	}
	return acc
}

// applyEnv merges environment variable overrides onto visible fields.
// Values pass through the field converter like CLI values.
func (c *Config) applyEnv(opts ApplyOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	for _, path := range c.FieldPaths() {
		if opts.EnvWhitelist != nil && !opts.EnvWhitelist[path] {
			continue
		}

		envVar := transform(path)
		value, exists := os.LookupEnv(envVar)
		if !exists {
			continue
		}
		if len(value) > MaxValueSize {
			return fmt.Errorf("%w: env value for %q exceeds %d bytes", ErrOverride, path, MaxValueSize)
		}
		if err := c.applyOverride(path, value, path); err != nil {
			return err
		}
	}
	return nil
}

// DiscoverEnv finds environment variables matching visible field paths and
// returns a map of path to env var name for the ones that are set.
func (c *Config) DiscoverEnv(prefix string) map[string]string {
	transform := defaultEnvTransform(prefix)

	discovered := make(map[string]string)
	for _, path := range c.FieldPaths() {
		envVar := transform(path)
		if _, exists := os.LookupEnv(envVar); exists {
			discovered[path] = envVar
		}
	}
	return discovered
}

// defaultEnvTransform creates the default environment variable transformer.
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ReplaceAll(path, ".", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}
