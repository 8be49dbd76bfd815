package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technurture/mailsleuth/internal/config"
)

func TestLoadConfigFile_DefaultsWithoutPath(t *testing.T) {
	cfg, err := loadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, config.DefaultPageBudget, cfg.PageBudget)
	assert.Equal(t, config.DefaultHelloDomain, cfg.HelloDomain)
}

func TestLoadConfigFile_AppliesDefaultsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"concurrency": 2}`), 0o644))

	cfg, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency, "file value is kept")
	assert.Equal(t, config.DefaultPageBudget, cfg.PageBudget, "missing values use defaults")
}

func TestLoadConfigFile_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"concurrency": 99}`), 0o644))

	_, err := loadConfigFile(path)
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["extract"])
	assert.True(t, names["verify"])
}
