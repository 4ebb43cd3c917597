package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/gamzabox/humble-doc-cli/internal/config"
)

type geminiProvider struct {
	client *genai.Client
	model  string
}

var _ Generator = (*geminiProvider)(nil)

func newGeminiProvider(ctx context.Context, httpClient HTTPClient, model config.Model) (*geminiProvider, error) {
	apiKey := model.ResolvedAPIKey()
	if apiKey == "" {
		return nil, errors.New("gemini provider requires apiKey")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if hc, ok := httpClient.(*http.Client); ok {
		cfg.HTTPClient = hc
	}
	if base := strings.TrimSpace(model.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model.Name}, nil
}

func (p *geminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		TopP:        genai.Ptr(float32(req.TopP)),
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, pickModel(req.Model, p.model), genai.Text(req.Content), genConfig)
	if err != nil {
		return "", &ServiceError{Provider: config.ProviderGemini, Cause: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ServiceError{Provider: config.ProviderGemini, Cause: ErrEmptyResponse}
	}
	return text, nil
}
