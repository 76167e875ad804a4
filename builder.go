package treeconf

import (
	"errors"
	"fmt"
)

// ValidatorFunc validates a fully applied tree and returns an error when
// it is unacceptable.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for running an apply cycle. The
// argument list is always supplied explicitly with WithArgs; it is never
// captured from the process environment at declaration time.
type Builder struct {
	cfg        *Config
	opts       ApplyOptions
	args       []string
	err        error
	validators []ValidatorFunc
}

// NewBuilder creates a builder for the given declared tree.
func NewBuilder(cfg *Config) *Builder {
	return &Builder{
		cfg:  cfg,
		opts: DefaultApplyOptions(),
	}
}

// WithArgs sets the command-line tokens (e.g. os.Args[1:]).
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithOverridesFile sets the structured override file path.
func (b *Builder) WithOverridesFile(path string) *Builder {
	b.opts.OverridesFile = path
	return b
}

// WithOverrides sets a structured override map, layered below any override
// file.
func (b *Builder) WithOverrides(m map[string]any) *Builder {
	b.opts.Overrides = m
	return b
}

// WithEnvPrefix sets the environment variable prefix.
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithSources sets the precedence order for override sources.
func (b *Builder) WithSources(sources ...Source) *Builder {
	b.opts.Sources = sources
	return b
}

// WithEnvTransform sets a custom environment variable transformer.
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.opts.EnvTransform = fn
	return b
}

// WithEnvWhitelist limits which paths are checked for env vars.
func (b *Builder) WithEnvWhitelist(paths ...string) *Builder {
	if b.opts.EnvWhitelist == nil {
		b.opts.EnvWhitelist = make(map[string]bool)
	}
	for _, path := range paths {
		b.opts.EnvWhitelist[path] = true
	}
	return b
}

// WithValidator adds a validator that runs after the apply cycle.
// Multiple validators run in the order they were added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build runs the apply cycle and returns the resolved tree.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("%w: builder has no configuration tree", ErrMisconfiguration)
	}

	if err := b.cfg.ApplyWithOptions(b.args, b.opts); err != nil {
		// A missing discovered file is not fatal; the apply cycle already
		// ran against the remaining sources before reporting it.
		if !errors.Is(err, ErrOverridesNotFound) {
			return nil, err
		}
	}

	for _, validator := range b.validators {
		if err := validator(b.cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return b.cfg, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan runs the apply cycle and decodes the resolved tree into the
// provided target struct pointer.
func (b *Builder) BuildAndScan(target any) error {
	cfg, err := b.Build()
	if err != nil {
		return err
	}

	if err := cfg.Scan("", target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return nil
}
