package treeconf

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Quick runs a full apply cycle with the standard precedence in a single
// call. This is the recommended entry point for most applications.
func Quick(cfg *Config, envPrefix, overridesFile string, args []string) (*Config, error) {
	opts := DefaultApplyOptions()
	opts.EnvPrefix = envPrefix
	opts.OverridesFile = overridesFile

	if err := cfg.ApplyWithOptions(args, opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustApply is like Apply but panics on error.
func (c *Config) MustApply(args []string) *Config {
	if err := c.Apply(args); err != nil {
		panic(fmt.Sprintf("config apply failed: %v", err))
	}
	return c
}

// Debug returns a formatted string showing all field values in the active
// subtree, one dotted path per line.
func (c *Config) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")

	flat := flattenMap(c.ToMap(), "")
	for _, path := range c.FieldPaths() {
		if v, ok := flat[path]; ok {
			b.WriteString(fmt.Sprintf("  %s = %v\n", path, v))
		} else {
			b.WriteString(fmt.Sprintf("  %s = %v\n", path, Unspecified))
		}
	}

	return b.String()
}

// Dump writes the current configuration to stdout in TOML format
func (c *Config) Dump() error {
	encoder := toml.NewEncoder(os.Stdout)
	return encoder.Encode(normalizeForTOML(c.ToMap()))
}
