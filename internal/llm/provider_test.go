package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/worker"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", `Here you go: {"a":1} hope it helps`, `{"a":1}`, true},
		{"no object", "supports", "", false},
		{"broken", `{"a":`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	var out map[string]string

	if err := Decode("openai", nil, &out); !errors.Is(err, model.ErrProviderSchema) {
		t.Errorf("nil response: expected schema error, got %v", err)
	}
	if err := Decode("openai", &Response{Content: json.RawMessage(`[1,2]`)}, &out); !errors.Is(err, model.ErrProviderSchema) {
		t.Errorf("wrong shape: expected schema error, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"claude alias", Config{Provider: "Claude", APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Provider: "ollama", Model: "llama3.1"}, "ollama", false},
		{"empty", Config{}, "", true},
		{"unknown", Config{Provider: "bard"}, "", true},
		{"openai without key", Config{Provider: "openai"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k", MaxTokens: 256}, 10*time.Second, nil)
	if cfg.Timeout != 10*time.Second || cfg.MaxTokens != 256 || cfg.APIKey != "k" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if got := cfg.maxTokens(Request{MaxTokens: 64}); got != 64 {
		t.Errorf("request max tokens should win, got %d", got)
	}
}

// scriptedProvider returns queued results in order
type scriptedProvider struct {
	results []error
	calls   int
}

func (s *scriptedProvider) Name() string                         { return "scripted" }
func (s *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *scriptedProvider) Judge(ctx context.Context, req Request) (*Response, error) {
	err := s.results[s.calls]
	s.calls++
	if err != nil {
		return nil, err
	}
	return &Response{Content: json.RawMessage(`{"answer":"supports"}`)}, nil
}

func TestResilient_RetriesTransportOnly(t *testing.T) {
	policy := worker.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Retryable: model.IsRetryable}

	flaky := &scriptedProvider{results: []error{
		model.NewTransportError("scripted", "judge", 503, errors.New("busy")),
		nil,
	}}
	if _, err := NewResilient(flaky, policy, nil).Judge(context.Background(), Request{}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if flaky.calls != 2 {
		t.Errorf("expected 2 calls, got %d", flaky.calls)
	}

	broken := &scriptedProvider{results: []error{
		model.NewSchemaError("scripted", "judge", errors.New("bad")),
	}}
	if _, err := NewResilient(broken, policy, nil).Judge(context.Background(), Request{}); !errors.Is(err, model.ErrProviderSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if broken.calls != 1 {
		t.Errorf("schema errors must not be retried, got %d calls", broken.calls)
	}
}
