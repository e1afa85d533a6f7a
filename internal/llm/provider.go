package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ads97/Veritas/internal/model"
)

// Provider defines the interface for structured-output judges
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge asks the model a question and returns JSON conforming to req.Schema
	Judge(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request contains one structured judgment call
type Request struct {
	// System frames the task
	System string

	// Prompt carries the question and the evidence
	Prompt string

	// SchemaName names the response schema (required by some APIs)
	SchemaName string

	// Schema is the JSON schema the answer must conform to
	Schema json.RawMessage

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Response contains the model's structured answer
type Response struct {
	// Content is the raw JSON document returned by the model
	Content json.RawMessage

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama or an OpenAI-compatible gateway)
	BaseURL string

	// Timeout for a single API request
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; judgments want it low
	Temperature float32

	// HTTPClient carries proxy and rate-limit settings; nil uses a plain client
	HTTPClient *http.Client
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig, timeout time.Duration, client *http.Client) Config {
	return Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPClient:  client,
	}
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

func (c Config) httpClient(timeout time.Duration) *http.Client {
	if c.HTTPClient != nil {
		client := *c.HTTPClient
		if client.Timeout == 0 {
			client.Timeout = timeout
		}
		return &client
	}
	return &http.Client{Timeout: timeout}
}

// Decode unmarshals a structured answer into out. Anything that is not valid JSON
// for out is reported as a schema error.
func Decode(provider string, resp *Response, out any) error {
	if resp == nil || len(bytes.TrimSpace(resp.Content)) == 0 {
		return model.NewSchemaError(provider, "decode", fmt.Errorf("empty response"))
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return model.NewSchemaError(provider, "decode", err)
	}
	return nil
}

// extractJSON trims code fences and prose around the first JSON object in text
func extractJSON(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, false
	}

	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

// schemaInstruction is appended to prompts for providers without native schema enforcement
func schemaInstruction(schema json.RawMessage) string {
	return "\n\nRespond with a single JSON object and nothing else. It must conform to this JSON schema:\n" + string(schema)
}
