package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Execution.Concurrency)
	assert.Equal(t, 10, cfg.Execution.TopN)
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Execution.Concurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestLoaderSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)
	assert.False(t, loader.IsInitialized())

	cfg := DefaultConfig()
	cfg.Target.URL = "http://example.test"
	require.NoError(t, loader.Save(cfg, loader.GetConfigPath()))
	assert.True(t, loader.IsInitialized())

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", loaded.Target.URL)
	assert.Equal(t, cfg.Execution.TopN, loaded.Execution.TopN)
}

func TestLoaderFindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	parentLoader := NewLoader(root)
	require.NoError(t, parentLoader.Save(DefaultConfig(), parentLoader.GetConfigPath()))

	loader := NewLoader(nested)
	assert.True(t, loader.IsInitialized())
}

func TestLoaderEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)
	require.NoError(t, loader.Save(DefaultConfig(), loader.GetConfigPath()))

	t.Setenv("PROWL_TARGET_URL", "http://override.test")
	t.Setenv("PROWL_AI_MODEL", "gpt-4o")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://override.test", cfg.Target.URL)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
}

func TestLoaderExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	loader := NewLoader(dir)
	require.NoError(t, loader.Save(DefaultConfig(), path))

	pinned := NewLoader(t.TempDir())
	pinned.SetConfigFile(path)
	_, err := pinned.Load()
	assert.NoError(t, err)
}
