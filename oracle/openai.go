package oracle

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISuggester implements Suggester with the Chat Completions API
type OpenAISuggester struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAISuggester creates an OpenAI backed suggester
func NewOpenAISuggester(cfg Config) (*OpenAISuggester, error) {
	key, err := apiKey(cfg.APIKey, "SEO_AUDITOR_OPENAI_KEY", "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAISuggester{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}, nil
}

// Suggest implements Suggester
func (p *OpenAISuggester) Suggest(ctx context.Context, summary Summary) ([]string, error) {
	userPrompt, err := buildUserPrompt(summary)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", ErrMalformedResponse)
	}

	return ParseSuggestions(resp.Choices[0].Message.Content)
}
