package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lc "github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/gamzabox/humble-doc-cli/internal/config"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// openRouterProvider talks to OpenAI-compatible gateways through langchaingo.
type openRouterProvider struct {
	llm *lcopenai.LLM
}

var _ Generator = (*openRouterProvider)(nil)

func newOpenRouterProvider(httpClient HTTPClient, model config.Model) (*openRouterProvider, error) {
	apiKey := model.ResolvedAPIKey()
	if apiKey == "" {
		return nil, errors.New("openrouter provider requires apiKey")
	}
	base := strings.TrimSpace(model.BaseURL)
	if base == "" {
		base = defaultOpenRouterBaseURL
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(strings.TrimRight(base, "/")),
		lcopenai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		lcopenai.WithModel(model.Name),
		lcopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create openrouter client: %w", err)
	}
	return &openRouterProvider{llm: client}, nil
}

func (p *openRouterProvider) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]lc.MessageContent, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, lc.TextParts(lc.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, lc.TextParts(lc.ChatMessageTypeHuman, req.Content))

	options := []lc.CallOption{
		lc.WithTemperature(req.Temperature),
		lc.WithTopP(req.TopP),
	}
	if req.MaxTokens > 0 {
		options = append(options, lc.WithMaxTokens(req.MaxTokens))
	}
	if strings.TrimSpace(req.Model) != "" {
		options = append(options, lc.WithModel(req.Model))
	}

	resp, err := p.llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", &ServiceError{Provider: config.ProviderOpenRouter, Cause: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &ServiceError{Provider: config.ProviderOpenRouter, Cause: ErrEmptyResponse}
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
