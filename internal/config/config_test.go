package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"concurrency": 3,
		"page_budget": 10,
		"hello_domain": "probe.example.com",
		"use_browser": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 10, cfg.PageBudget)
	assert.Equal(t, "probe.example.com", cfg.HelloDomain)
	assert.True(t, cfg.UseBrowser)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := writeConfig(t, `{"concurrency": `)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate_Ranges(t *testing.T) {
	ok := Config{Concurrency: 5, PageBudget: 15}
	assert.NoError(t, ok.Validate())

	tooWide := Config{Concurrency: 40}
	err := tooWide.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Concurrency")
}

func TestValidate_ProbeSenderMustBeEmail(t *testing.T) {
	bad := Config{ProbeSender: "not-an-address"}
	assert.Error(t, bad.Validate())

	good := Config{ProbeSender: "verify@probe.example.com"}
	assert.NoError(t, good.Validate())
}

func TestApplyDefaults(t *testing.T) {
	cfg := (&Config{}).ApplyDefaults()

	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPageBudget, cfg.PageBudget)
	assert.Equal(t, DefaultEmailTarget, cfg.EmailTarget)
	assert.Equal(t, DefaultHelloDomain, cfg.HelloDomain)
	assert.Equal(t, DefaultProbeSender, cfg.ProbeSender)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 8*time.Second, cfg.SMTPTimeout())
	assert.Equal(t, 30*time.Second, cfg.VerifyBudget())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := (&Config{Concurrency: 2, HelloDomain: "probe.example.com"}).ApplyDefaults()

	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "probe.example.com", cfg.HelloDomain)
}
