package treeconf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuilder tests the fluent build interface
func TestBuilder(t *testing.T) {
	newTree := func() *Config {
		return New().
			Define("host", "localhost").
			Define("port", 8080)
	}

	t.Run("BasicBuild", func(t *testing.T) {
		cfg, err := NewBuilder(newTree()).
			WithArgs([]string{"--port", "9000"}).
			Build()
		require.NoError(t, err)

		port, _ := cfg.Get("port")
		assert.Equal(t, 9000, port)
	})

	t.Run("NoArgsMeansDefaults", func(t *testing.T) {
		// The builder never reads os.Args on its own.
		cfg, err := NewBuilder(newTree()).Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "localhost", host)
	})

	t.Run("WithOverrides", func(t *testing.T) {
		cfg, err := NewBuilder(newTree()).
			WithOverrides(map[string]any{"host": "maphost"}).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "maphost", host)
	})

	t.Run("WithEnvPrefix", func(t *testing.T) {
		t.Setenv("BUILD_HOST", "envhost")

		cfg, err := NewBuilder(newTree()).
			WithEnvPrefix("BUILD_").
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "envhost", host)
	})

	t.Run("WithSources", func(t *testing.T) {
		t.Setenv("BUILD_HOST", "envhost")

		cfg, err := NewBuilder(newTree()).
			WithEnvPrefix("BUILD_").
			WithSources(SourceDefault). // ignore everything but defaults
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "localhost", host)
	})

	t.Run("WithEnvWhitelist", func(t *testing.T) {
		t.Setenv("HOST", "envhost")
		t.Setenv("PORT", "1")

		cfg, err := NewBuilder(newTree()).
			WithEnvWhitelist("host").
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "envhost", host)

		port, _ := cfg.Get("port")
		assert.Equal(t, 8080, port)
	})

	t.Run("ValidatorsRunInOrder", func(t *testing.T) {
		var order []string
		_, err := NewBuilder(newTree()).
			WithValidator(func(*Config) error {
				order = append(order, "first")
				return nil
			}).
			WithValidator(func(*Config) error {
				order = append(order, "second")
				return nil
			}).
			Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("ValidatorFailure", func(t *testing.T) {
		sentinel := errors.New("port out of range")
		_, err := NewBuilder(newTree()).
			WithValidator(func(c *Config) error {
				port, _ := c.Int64("port")
				if port < 1024 {
					return nil
				}
				return sentinel
			}).
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("MissingOverridesFileTolerated", func(t *testing.T) {
		// A discovered-but-absent file must not fail the build.
		cfg, err := NewBuilder(newTree()).
			WithOverridesFile("/non/existent/overrides.yaml").
			Build()
		require.NoError(t, err)
		assert.NotNil(t, cfg)
	})

	t.Run("MissingOverridesFileStillLayersCLI", func(t *testing.T) {
		// The absent file skips only the file layer; CLI tokens still
		// land and required checks still run against them.
		cfg := New()
		cfg.Define("port", NewField(WithDefault(8080)))
		cfg.Define("needed", NewField(WithType(reflect.TypeOf("")), WithHelp("must be set")))

		built, err := NewBuilder(cfg).
			WithArgs([]string{"--port", "9000", "--needed", "x"}).
			WithOverridesFile("/non/existent/overrides.yaml").
			Build()
		require.NoError(t, err)

		port, _ := built.Get("port")
		assert.Equal(t, 9000, port)
		needed, _ := built.Get("needed")
		assert.Equal(t, "x", needed)
	})

	t.Run("MissingOverridesFileStillChecksRequired", func(t *testing.T) {
		cfg := New()
		cfg.Define("needed", NewField(WithType(reflect.TypeOf(""))))

		_, err := NewBuilder(cfg).
			WithOverridesFile("/non/existent/overrides.yaml").
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingArgument)
	})

	t.Run("NilTree", func(t *testing.T) {
		_, err := NewBuilder(nil).Build()
		assert.ErrorIs(t, err, ErrMisconfiguration)
	})

	t.Run("BuildAndScan", func(t *testing.T) {
		type Target struct {
			Host string `conf:"host"`
			Port int    `conf:"port"`
		}

		var target Target
		err := NewBuilder(newTree()).
			WithArgs([]string{"--host", "scanned"}).
			BuildAndScan(&target)
		require.NoError(t, err)
		assert.Equal(t, "scanned", target.Host)
		assert.Equal(t, 8080, target.Port)
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		bad := New().Define("a", 1).Define("a", 2)
		assert.Panics(t, func() {
			NewBuilder(bad).MustBuild()
		})
	})
}

// TestFileDiscovery tests override file discovery
func TestFileDiscovery(t *testing.T) {
	writeFile := func(t *testing.T, dir, name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	newTree := func() *Config {
		return New().Define("host", "defaulthost")
	}

	t.Run("DefaultOptions", func(t *testing.T) {
		opts := DefaultDiscoveryOptions("myapp")
		assert.Equal(t, "myapp", opts.Name)
		assert.Equal(t, "MYAPP_OVERRIDES", opts.EnvVar)
		assert.Equal(t, "--overrides", opts.CLIFlag)
		assert.True(t, opts.UseXDG)
	})

	t.Run("CLIFlagWins", func(t *testing.T) {
		tmpDir := t.TempDir()
		cliFile := writeFile(t, tmpDir, "cli.yaml", "host: clihost\n")
		writeFile(t, tmpDir, "app.yaml", "host: dirhost\n")

		opts := FileDiscoveryOptions{
			Name:    "app",
			CLIFlag: "--overrides",
			Paths:   []string{tmpDir},
		}
		cfg, err := NewBuilder(newTree()).
			WithArgs([]string{"--overrides", cliFile}).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "clihost", host)
	})

	t.Run("EnvVarBeatsSearchPaths", func(t *testing.T) {
		tmpDir := t.TempDir()
		envFile := writeFile(t, tmpDir, "env.yaml", "host: envfile\n")
		writeFile(t, tmpDir, "app.yaml", "host: dirhost\n")

		t.Setenv("APP_OVERRIDES", envFile)

		opts := FileDiscoveryOptions{
			Name:   "app",
			EnvVar: "APP_OVERRIDES",
			Paths:  []string{tmpDir},
		}
		cfg, err := NewBuilder(newTree()).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "envfile", host)
	})

	t.Run("SearchPathsByExtension", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFile(t, tmpDir, "app.toml", `host = "tomlhost"`+"\n")

		opts := FileDiscoveryOptions{
			Name:       "app",
			Extensions: []string{".yaml", ".toml"},
			Paths:      []string{tmpDir},
		}
		cfg, err := NewBuilder(newTree()).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "tomlhost", host)
	})

	t.Run("NothingFoundIsNotAnError", func(t *testing.T) {
		opts := FileDiscoveryOptions{
			Name:       "nosuchapp",
			Extensions: []string{".yaml"},
			Paths:      []string{t.TempDir()},
		}
		cfg, err := NewBuilder(newTree()).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "defaulthost", host)
	})

	t.Run("XDGConfigHome", func(t *testing.T) {
		tmpDir := t.TempDir()
		appDir := filepath.Join(tmpDir, "xdgapp")
		require.NoError(t, os.MkdirAll(appDir, 0755))
		writeFile(t, appDir, "xdgapp.yaml", "host: xdghost\n")

		t.Setenv("XDG_CONFIG_HOME", tmpDir)

		opts := FileDiscoveryOptions{
			Name:       "xdgapp",
			Extensions: []string{".yaml"},
			UseXDG:     true,
		}
		cfg, err := NewBuilder(newTree()).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		host, _ := cfg.Get("host")
		assert.Equal(t, "xdghost", host)
	})
}
