package treeconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadOverridesFile reads a structured override file and merges it into
// the tree. The format is detected from the extension, then from the
// content: YAML, TOML, or JSON. A missing or malformed file is a fatal
// error surfaced to the caller.
func (c *Config) LoadOverridesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOverridesNotFound, path)
		}
		return fmt.Errorf("failed to read overrides file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
		if format == "" {
			return fmt.Errorf("%w: unable to determine format of overrides file '%s'", ErrOverride, path)
		}
	}

	overrides := make(map[string]any)
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return fmt.Errorf("failed to parse YAML overrides file '%s': %w", path, err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &overrides); err != nil {
			return fmt.Errorf("failed to parse TOML overrides file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // preserve number precision
		if err := decoder.Decode(&overrides); err != nil {
			return fmt.Errorf("failed to parse JSON overrides file '%s': %w", path, err)
		}
	}

	return c.OverrideMap(normalizeJSONNumbers(overrides))
}

// Save writes the flattened tree to a TOML file atomically. Unspecified
// and nil values are omitted; values TOML cannot represent are rendered
// through their textual representation.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(normalizeForTOML(c.ToMap())); err != nil {
		return fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

// ToYAML renders the flattened tree as YAML, preserving declaration order.
// Non-primitive values are rendered via their textual representation
// rather than attempted serialization.
func (c *Config) ToYAML() (string, error) {
	node, err := c.yamlNode()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("failed to encode config to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *Config) yamlNode() (*yaml.Node, error) {
	if c.groups != nil {
		if active := c.groups.activeNode(); active != nil {
			return active.yamlNode()
		}
		scalar, _ := c.groups.activeScalar()
		return yamlValueNode(scalar)
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ch := range c.children {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: ch.name}

		var value *yaml.Node
		var err error
		if ch.field != nil {
			value, err = yamlValueNode(ch.field.value)
		} else {
			value, err = ch.node.yamlNode()
		}
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// yamlValueNode encodes a single value. Stringers and other non-primitive
// types become their textual representation.
func yamlValueNode(v any) (*yaml.Node, error) {
	node := &yaml.Node{}

	if s, ok := v.(fmt.Stringer); ok {
		node.SetString(s.String())
		return node, nil
	}

	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]any, map[string]any, []string, []int, []float64:
		if err := node.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode value %v: %w", v, err)
		}
		return node, nil
	}

	node.SetString(fmt.Sprintf("%v", v))
	return node, nil
}

// normalizeForTOML prepares a flattened tree for TOML encoding: nil and
// Unspecified entries are dropped (TOML has no null), Stringers and other
// non-primitive values are rendered as text.
func normalizeForTOML(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = normalizeForTOML(t)
		case bool, string,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64,
			[]any, []string, []int, []float64:
			out[k] = v
		default:
			if IsUnspecified(v) {
				continue
			}
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// normalizeJSONNumbers converts json.Number leaves into int64 or float64
// so structured overrides store plain numeric values.
func normalizeJSONNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			m[k] = normalizeJSONNumbers(t)
		case json.Number:
			if i, err := t.Int64(); err == nil {
				m[k] = i
			} else if f, err := t.Float64(); err == nil {
				m[k] = f
			} else {
				m[k] = t.String()
			}
		}
	}
	return m
}

// atomicWriteFile writes data to path via a temp file and rename.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// detectFileFormat determines format from the file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect the format by parsing.
func detectFormatFromContent(data []byte) string {
	// JSON first (strict format).
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// YAML is a superset of JSON, so check after JSON.
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}
