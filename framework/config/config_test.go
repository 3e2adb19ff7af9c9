package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-assemble/framework/config"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("testdata/missing.env")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "go-assemble"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "console"},
		{"Assembly.IterationLimit", cfg.Assembly.IterationLimit, 100},
		{"Assembly.CreateMissingDependencies", cfg.Assembly.CreateMissingDependencies, true},
		{"Assembly.RetainContext", cfg.Assembly.RetainContext, false},
		{"Assembly.StrictConstructors", cfg.Assembly.StrictConstructors, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("ASSEMBLY_RETAIN_CONTEXT", "true")

	cfg, err := config.Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.True(t, cfg.Assembly.RetainContext)
}

func TestLoad_EnvFile(t *testing.T) {
	keys := []string{"APP_NAME", "LOG_FORMAT", "ASSEMBLY_ITERATION_LIMIT", "ASSEMBLY_STRICT_CONSTRUCTORS"}
	for _, k := range keys {
		require.Empty(t, os.Getenv(k), "%s must not be set by the environment", k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})

	cfg, err := config.Load("testdata/assembly.env")
	require.NoError(t, err)

	assert.Equal(t, "inventory", cfg.App.Name)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 7, cfg.Assembly.IterationLimit)
	assert.True(t, cfg.Assembly.StrictConstructors)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"APP_ENV", "staging"},
		{"APP_PORT", "http"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"ASSEMBLY_ITERATION_LIMIT", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load("testdata/missing.env")
			require.Error(t, err)
		})
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	assert.Equal(t, "hello", config.Get("CUSTOM_KEY", "default"))
	assert.Equal(t, "fallback", config.Get("MISSING_KEY_FOR_TEST", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, config.GetInt("SOME_INT", 0))

	t.Setenv("SOME_INT", "notanint")
	assert.Equal(t, 99, config.GetInt("SOME_INT", 99))
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		assert.True(t, config.GetBool("BOOL_KEY", false), "value %q", val)
	}

	t.Setenv("BOOL_KEY", "false")
	assert.False(t, config.GetBool("BOOL_KEY", true))

	t.Setenv("BOOL_KEY", "notabool")
	assert.True(t, config.GetBool("BOOL_KEY", true))
}
