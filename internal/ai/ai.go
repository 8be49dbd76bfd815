// Package ai is the optional model-assisted fallback: when mechanical
// decoding finds nothing, the page text is handed to Gemini and any addresses
// it reports are merged as one more candidate source. The package is always
// skippable; without an API key the pipeline simply never calls it.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/option"

	"github.com/technurture/mailsleuth/internal/decode"
)

// Analyzer extracts addresses from free text. Output is advisory and is
// re-validated before use, never trusted exclusively.
type Analyzer interface {
	Analyze(ctx context.Context, text, domain string) ([]string, error)
	Close() error
}

const defaultModel = "gemini-2.0-flash"

// maxAnalyzedChars caps the text sent per request. Contact details live near
// the top of the visible text; sending whole legal pages wastes tokens.
const maxAnalyzedChars = 15000

// responseSchema is the contract the model's JSON reply must satisfy.
const responseSchema = `{
	"type": "object",
	"required": ["emails"],
	"properties": {
		"emails": {
			"type": "array",
			"items": { "type": "string" }
		}
	},
	"additionalProperties": true
}`

// Gemini implements Analyzer on the Google Generative AI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the Gemini-backed analyzer. An empty API key is an error
// here so callers decide up front to run without the fallback.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: defaultModel}, nil
}

// Analyze asks the model for contact addresses in the text and returns the
// subset that survives syntactic validation.
func (g *Gemini) Analyze(ctx context.Context, text, domain string) ([]string, error) {
	if len(text) > maxAnalyzedChars {
		text = text[:maxAnalyzedChars]
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(text, domain)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	raw, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return parseResponse(raw)
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func buildPrompt(text, domain string) string {
	var sb strings.Builder
	sb.WriteString("You are extracting contact email addresses from the visible text of a business website.\n\n")
	fmt.Fprintf(&sb, "The website's domain is %q. Addresses on that domain are the most interesting, but report every real address you find.\n\n", domain)
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString("{\n  \"emails\": []string // every email address present in the text\n}\n\n")
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract addresses directly from the text, do not invent or guess any.\n")
	sb.WriteString("- Reconstruct obfuscated forms like \"info [at] example [dot] com\" into real addresses.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)
	return sb.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// parseResponse validates the model's reply against the schema, then keeps
// only syntactically valid, deduplicated addresses.
func parseResponse(raw string) ([]string, error) {
	clean := stripJSONFences(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewStringLoader(clean),
	)
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("response does not match schema: %v", result.Errors())
	}

	var payload struct {
		Emails []string `json:"emails"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	seen := make(map[string]bool, len(payload.Emails))
	var out []string
	for _, addr := range payload.Emails {
		addr = decode.Normalize(addr)
		if !decode.IsValidEmail(addr) || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out, nil
}

// stripJSONFences removes markdown code block wrappers. Models often wrap
// JSON in fences even when instructed not to.
func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
