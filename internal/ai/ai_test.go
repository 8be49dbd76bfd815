package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_PlainJSON(t *testing.T) {
	got, err := parseResponse(`{"emails": ["info@acme.io", "sales@acme.io"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@acme.io", "sales@acme.io"}, got)
}

func TestParseResponse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"emails\": [\"info@acme.io\"]}\n```"
	got, err := parseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@acme.io"}, got)
}

func TestParseResponse_GenericFence(t *testing.T) {
	raw := "```\n{\"emails\": [\"info@acme.io\"]}\n```"
	got, err := parseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@acme.io"}, got)
}

func TestParseResponse_FiltersInventedAndPlaceholderAddresses(t *testing.T) {
	got, err := parseResponse(`{"emails": ["info@acme.io", "test@example.com", "not-an-email", "INFO@ACME.IO"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@acme.io"}, got, "placeholder domains, junk, and case duplicates are dropped")
}

func TestParseResponse_EmptyList(t *testing.T) {
	got, err := parseResponse(`{"emails": []}`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseResponse_SchemaViolation(t *testing.T) {
	_, err := parseResponse(`{"emails": "info@acme.io"}`)
	assert.Error(t, err, "a string where the array belongs fails schema validation")

	_, err = parseResponse(`{"results": []}`)
	assert.Error(t, err, "the emails key is required")
}

func TestParseResponse_NotJSON(t *testing.T) {
	_, err := parseResponse("I could not find any addresses, sorry!")
	assert.Error(t, err)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "")
	assert.Error(t, err)
}

func TestBuildPrompt_MentionsDomainAndText(t *testing.T) {
	prompt := buildPrompt("reach us at info [at] acme [dot] com", "acme.io")
	assert.Contains(t, prompt, `"acme.io"`)
	assert.Contains(t, prompt, "info [at] acme [dot] com")
	assert.Contains(t, prompt, "ONLY the JSON object")
}
