package adapter

import (
	"context"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// openaiAdapter implements LLMAdapter for OpenAI and OpenAI-compatible APIs.
type openaiAdapter struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAI creates an OpenAI adapter. If opts.APIKey is empty, OPENAI_API_KEY is used.
func NewOpenAI(opts Options) LLMAdapter {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &openaiAdapter{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		provider: ProviderOpenAI,
	}
}

// NewOpenRouter creates an adapter for OpenRouter's OpenAI-compatible API.
// If opts.APIKey is empty, OPENROUTER_API_KEY is used.
func NewOpenRouter(opts Options) LLMAdapter {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultOpenRouterURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base: base,
			headers: map[string]string{
				"HTTP-Referer": opts.Referer,
				"X-Title":      opts.Title,
			},
		},
	}

	model := opts.Model
	if model == "" {
		model = "openai/gpt-4o-mini"
	}
	return &openaiAdapter{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		provider: ProviderOpenRouter,
	}
}

func (o *openaiAdapter) Info() ModelInfo {
	info := ModelInfo{
		Name:             o.model,
		Provider:         o.provider,
		MaxContextWindow: 128000,
	}
	if o.provider == ProviderOpenAI {
		info.EmbeddingDimension = 1536 // text-embedding-3-small
	}
	return info
}

func (o *openaiAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", o.provider, err)
	}

	result := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		result[i] = d.Embedding
	}
	return result, nil
}

func (o *openaiAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s complete: %w", o.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
