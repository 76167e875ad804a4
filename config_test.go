package treeconf

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTreeDeclaration tests building trees with Define
func TestTreeDeclaration(t *testing.T) {
	t.Run("AutoWrapRawValues", func(t *testing.T) {
		cfg := New().
			Define("host", "localhost").
			Define("port", 8080).
			Define("debug", false)
		require.NoError(t, cfg.Err())

		host, ok := cfg.Get("host")
		assert.True(t, ok)
		assert.Equal(t, "localhost", host)

		port, ok := cfg.Get("port")
		assert.True(t, ok)
		assert.Equal(t, 8080, port)
	})

	t.Run("ExplicitFields", func(t *testing.T) {
		cfg := New().
			Define("rate", NewField(
				WithDefault(0.5),
				WithValidate(func(v any) bool { return v.(float64) > 0 }),
			)).
			Define("name", NewField(WithType(reflect.TypeOf(""))))
		require.NoError(t, cfg.Err())

		rate, ok := cfg.Get("rate")
		assert.True(t, ok)
		assert.Equal(t, 0.5, rate)

		// No default means required: the value starts as Unspecified.
		name, ok := cfg.Get("name")
		assert.True(t, ok)
		assert.True(t, IsUnspecified(name))
	})

	t.Run("NestedSubTrees", func(t *testing.T) {
		cfg := New().
			Define("server", New().
				Define("host", "0.0.0.0").
				Define("tls", New().
					Define("cert", "/etc/cert.pem")))
		require.NoError(t, cfg.Err())

		cert, ok := cfg.Get("server.tls.cert")
		assert.True(t, ok)
		assert.Equal(t, "/etc/cert.pem", cert)
	})

	t.Run("DeclarationOrder", func(t *testing.T) {
		cfg := New().
			Define("zeta", 1).
			Define("alpha", 2).
			Define("mid", New().Define("inner", 3))
		require.NoError(t, cfg.Err())

		assert.Equal(t, []string{"zeta", "alpha", "mid.inner"}, cfg.FieldPaths())
	})

	t.Run("DuplicateField", func(t *testing.T) {
		cfg := New().
			Define("a", 1).
			Define("a", 2)
		err := cfg.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMisconfiguration)
		assert.Contains(t, err.Error(), "duplicate field")
	})

	t.Run("InvalidFieldName", func(t *testing.T) {
		cfg := New().Define("bad.name", 1)
		assert.ErrorIs(t, cfg.Err(), ErrMisconfiguration)

		cfg = New().Define("", 1)
		assert.ErrorIs(t, cfg.Err(), ErrMisconfiguration)
	})

	t.Run("DefineOnGroupedNode", func(t *testing.T) {
		cfg := NewGroup("a").
			Variant("a", New().Define("x", 1)).
			Define("y", 2)
		err := cfg.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMisconfiguration)
	})

	t.Run("VariantOnPlainNode", func(t *testing.T) {
		cfg := New().Variant("a", New())
		assert.ErrorIs(t, cfg.Err(), ErrMisconfiguration)
	})

	t.Run("DefaultAndFactoryConflict", func(t *testing.T) {
		cfg := New().Define("x", NewField(
			WithDefault(1),
			WithFactory(func() any { return 2 }),
		))
		err := cfg.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMisconfiguration)
	})

	t.Run("NestedErrorSurfaces", func(t *testing.T) {
		cfg := New().
			Define("outer", New().
				Define("a", 1).
				Define("a", 2))
		assert.ErrorIs(t, cfg.Err(), ErrMisconfiguration)
	})
}

// TestDefaultFactory tests factory-produced defaults
func TestDefaultFactory(t *testing.T) {
	cfg := New().Define("tags", NewField(
		WithFactory(func() any { return []string{"base"} }),
	))
	require.NoError(t, cfg.Err())

	tags, ok := cfg.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"base"}, tags)

	// Each clone re-copies the current value; mutating one tree's slice
	// header must not be visible through a clone made before the mutation.
	clone := cfg.Clone()
	require.NoError(t, cfg.Set("tags", []string{"changed"}))

	cloneTags, _ := clone.Get("tags")
	assert.Equal(t, []string{"base"}, cloneTags)
}

// TestGetSet tests path-based access
func TestGetSet(t *testing.T) {
	newTree := func() *Config {
		return New().
			Define("a", 1).
			Define("sub", New().
				Define("b", "two"))
	}

	t.Run("GetUnknownPath", func(t *testing.T) {
		cfg := newTree()
		_, ok := cfg.Get("missing")
		assert.False(t, ok)

		_, ok = cfg.Get("a.b")
		assert.False(t, ok)

		_, ok = cfg.Get("sub.missing")
		assert.False(t, ok)
	})

	t.Run("GetSubTree", func(t *testing.T) {
		cfg := newTree()
		sub, ok := cfg.Get("sub")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"b": "two"}, sub)
	})

	t.Run("SetStoresWithoutConversion", func(t *testing.T) {
		cfg := newTree()
		require.NoError(t, cfg.Set("a", 42))
		a, _ := cfg.Get("a")
		assert.Equal(t, 42, a)

		// Strings are stored verbatim; Set does not run the converter.
		require.NoError(t, cfg.Set("a", "raw"))
		a, _ = cfg.Get("a")
		assert.Equal(t, "raw", a)
	})

	t.Run("SetUnknownPath", func(t *testing.T) {
		cfg := newTree()
		err := cfg.Set("nope", 1)
		assert.ErrorIs(t, err, ErrOverride)
	})

	t.Run("SetOnSection", func(t *testing.T) {
		cfg := newTree()
		err := cfg.Set("sub", 1)
		assert.ErrorIs(t, err, ErrOverride)
	})
}

// TestToMap tests snapshot flattening
func TestToMap(t *testing.T) {
	t.Run("NestedTree", func(t *testing.T) {
		cfg := New().
			Define("a", 1).
			Define("sub", New().
				Define("b", "x").
				Define("deep", New().
					Define("c", true)))
		require.NoError(t, cfg.Err())

		assert.Equal(t, map[string]any{
			"a": 1,
			"sub": map[string]any{
				"b": "x",
				"deep": map[string]any{
					"c": true,
				},
			},
		}, cfg.ToMap())
	})

	t.Run("RequiredFieldStaysUnspecified", func(t *testing.T) {
		cfg := New().Define("x", NewField(WithType(reflect.TypeOf(0))))
		m := cfg.ToMap()
		assert.True(t, IsUnspecified(m["x"]))
	})
}

// TestClone tests deep copy independence
func TestClone(t *testing.T) {
	cfg := New().
		Define("a", 1).
		Define("model", NewGroup("small").
			Variant("small", New().Define("n", 4)).
			Variant("large", New().Define("n", 32)))
	require.NoError(t, cfg.Err())

	clone := cfg.Clone()

	require.NoError(t, cfg.Set("a", 99))
	require.NoError(t, cfg.Set("model", "large"))

	a, _ := clone.Get("a")
	assert.Equal(t, 1, a)

	n, _ := clone.Get("model.n")
	assert.Equal(t, 4, n, "clone must keep the original active variant")

	n, _ = cfg.Get("model.n")
	assert.Equal(t, 32, n)
}

// TestUnspecified tests the sentinel value
func TestUnspecified(t *testing.T) {
	assert.True(t, IsUnspecified(Unspecified))
	assert.False(t, IsUnspecified(nil))
	assert.False(t, IsUnspecified(0))
	assert.False(t, IsUnspecified(""))
	assert.Equal(t, "UNSPECIFIED", Unspecified.(interface{ String() string }).String())

	// nil is a legitimate value, distinct from Unspecified.
	cfg := New().Define("x", NewField(WithDefault(nil)))
	v, ok := cfg.Get("x")
	assert.True(t, ok)
	assert.Nil(t, v)
	require.NoError(t, cfg.CheckRequired())
}
