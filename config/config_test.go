package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.DefaultProvider)
	assert.Equal(t, filepath.Join(dir, DotDir, "sessions"), cfg.SessionsDir)
	assert.Equal(t, 4, cfg.StreamChunks)
	assert.Contains(t, cfg.FilesystemAccess.Hidden, DotDir)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, DotDir), 0o755))
	body := []byte("default_provider: claude\nstream_chunks: 8\nllm:\n  provider: anthropic\n  model: claude-sonnet-4-20250514\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotDir, "config.yaml"), body, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.DefaultProvider)
	assert.Equal(t, 8, cfg.StreamChunks)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
}
