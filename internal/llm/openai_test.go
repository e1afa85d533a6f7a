package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Ads97/Veritas/internal/model"
)

var testSchema = json.RawMessage(`{"type":"object","properties":{"answer":{"type":"string","enum":["supports","contradicts","unknown"]}},"required":["answer"],"additionalProperties":false}`)

func chatResponse(content string, finish openai.FinishReason) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:      "chatcmpl-123",
		Object:  "chat.completion",
		Created: 1677652288,
		Model:   "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: finish,
			},
		},
		Usage: openai.Usage{TotalTokens: 100},
	}
}

func TestOpenAIProvider_Judge_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONSchema {
			t.Errorf("expected json_schema response format, got %+v", req.ResponseFormat)
		}
		if req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil && req.ResponseFormat.JSONSchema.Name != "claims" {
			t.Errorf("expected schema name claims, got %s", req.ResponseFormat.JSONSchema.Name)
		}

		_ = json.NewEncoder(w).Encode(chatResponse(`{"answer":"supports"}`, openai.FinishReasonStop))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Judge(context.Background(), Request{
		System:     "judge",
		Prompt:     "Does the page support the claim?",
		SchemaName: "claims",
		Schema:     testSchema,
	})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}

	var out struct {
		Answer string `json:"answer"`
	}
	if err := Decode(provider.Name(), resp, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Answer != "supports" {
		t.Errorf("Unexpected answer: %s", out.Answer)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Judge_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Judge(context.Background(), Request{Prompt: "x", Schema: testSchema})
	if !errors.Is(err, model.ErrProviderTransport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if !model.IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestOpenAIProvider_Judge_AuthErrorNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "bad-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Judge(context.Background(), Request{Prompt: "x", Schema: testSchema})
	if !errors.Is(err, model.ErrProviderTransport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if model.IsRetryable(err) {
		t.Error("401 should not be retryable")
	}
}

func TestOpenAIProvider_Judge_NonJSONContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("I think it supports the claim.", openai.FinishReasonStop))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Judge(context.Background(), Request{Prompt: "x", Schema: testSchema})
	if !errors.Is(err, model.ErrProviderSchema) {
		t.Fatalf("Expected schema error, got %v", err)
	}
}

func TestOpenAIProvider_Judge_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"answer":"supp`, openai.FinishReasonLength))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Judge(context.Background(), Request{Prompt: "x", Schema: testSchema})
	if !errors.Is(err, model.ErrProviderSchema) {
		t.Fatalf("Expected schema error, got %v", err)
	}
}

func TestOpenAIProvider_Judge_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = provider.Judge(ctx, Request{Prompt: "x", Schema: testSchema})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if model.IsRetryable(err) {
		t.Error("deadline errors should not be retried")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
