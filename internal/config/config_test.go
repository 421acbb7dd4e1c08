package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "balanced", cfg.Policy)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dax.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: safe\napi_url: https://example.test\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "safe", cfg.Policy)
	require.Equal(t, "https://example.test", cfg.APIURL)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dax.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: safe\n"), 0o644))

	t.Setenv("DAX_POLICY", "aggressive")
	t.Setenv("DAX_TUI", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "aggressive", cfg.Policy)
	require.True(t, cfg.TUI.Force)
}

func TestResolvePolicy_BuiltinPresets(t *testing.T) {
	cfg := &Config{Policy: "balanced"}

	p, err := cfg.ResolvePolicy("safe")
	require.NoError(t, err)
	require.Equal(t, 0.1, p.Temperature)
	require.Equal(t, 2048, p.MaxTokens)

	p, err = cfg.ResolvePolicy("")
	require.NoError(t, err)
	require.Equal(t, 0.2, p.Temperature)
}

func TestResolvePolicy_UserDefinedOverridesBuiltin(t *testing.T) {
	cfg := &Config{Policies: map[string]GenerationPolicy{
		"safe": {Temperature: 0.05, TopP: 0.5, MaxTokens: 1024},
	}}

	p, err := cfg.ResolvePolicy("safe")
	require.NoError(t, err)
	require.Equal(t, 0.05, p.Temperature)
}

func TestResolvePolicy_UnknownNameErrors(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.ResolvePolicy("nonexistent")
	require.Error(t, err)
}
