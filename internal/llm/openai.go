package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Ads97/Veritas/internal/model"
)

// OpenAIProvider implements the Provider interface for OpenAI models.
// Answers are constrained server-side with the json_schema response format.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = config.httpClient(config.timeout(30 * time.Second))

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Judge runs one chat completion with a strict JSON schema response format
func (p *OpenAIProvider) Judge(ctx context.Context, req Request) (*Response, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	schemaName := req.SchemaName
	if schemaName == "" {
		schemaName = "judgment"
	}

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   p.config.maxTokens(req),
		Temperature: p.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: req.Schema,
				Strict: true,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, model.NewSchemaError(p.Name(), "judge", errors.New("no choices in response"))
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, model.NewSchemaError(p.Name(), "judge", errors.New("response truncated at max tokens"))
	}
	if choice.Message.Refusal != "" {
		return nil, model.NewSchemaError(p.Name(), "judge", fmt.Errorf("model refused: %s", choice.Message.Refusal))
	}

	content, ok := extractJSON(choice.Message.Content)
	if !ok {
		return nil, model.NewSchemaError(p.Name(), "judge", fmt.Errorf("non-JSON content: %.80q", strings.TrimSpace(choice.Message.Content)))
	}

	return &Response{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// parseAPIError maps go-openai errors onto the provider error taxonomy.
// API, auth and network failures are transport errors; model.IsRetryable uses the status code.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return model.NewTransportError("openai", "judge", reqErr.HTTPStatusCode, fmt.Errorf("request error: %s", strings.TrimSpace(string(reqErr.Body))))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return model.NewTransportError("openai", "judge", apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}

	return model.NewTransportError("openai", "judge", 0, err)
}
