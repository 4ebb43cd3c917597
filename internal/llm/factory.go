package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gamzabox/humble-doc-cli/internal/config"
)

// HTTPClient abstracts http.Client for testability.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Factory wires config models to providers.
type Factory struct {
	client HTTPClient
}

// NewFactory builds a Factory with optional custom HTTP client.
func NewFactory(client HTTPClient) *Factory {
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	return &Factory{client: client}
}

// Create instantiates a provider for a model.
func (f *Factory) Create(model config.Model) (Generator, error) {
	switch strings.ToLower(model.Provider) {
	case config.ProviderOpenAI:
		apiKey := model.ResolvedAPIKey()
		if apiKey == "" {
			return nil, errors.New("openai provider requires apiKey")
		}
		base := model.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &openAIProvider{
			client:  f.client,
			baseURL: strings.TrimRight(base, "/"),
			apiKey:  apiKey,
			model:   model.Name,
		}, nil
	case config.ProviderOllama:
		base := model.BaseURL
		if base == "" {
			base = "http://localhost:11434"
		}
		return &ollamaProvider{
			client:  f.client,
			baseURL: strings.TrimRight(base, "/"),
			model:   model.Name,
		}, nil
	case config.ProviderGemini:
		return newGeminiProvider(context.Background(), f.client, model)
	case config.ProviderOpenRouter:
		return newOpenRouterProvider(f.client, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", model.Provider)
	}
}

var _ Generator = (*openAIProvider)(nil)
var _ Generator = (*ollamaProvider)(nil)

type openAIProvider struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	model   string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequestPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *openAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(openAIRequestPayload{
		Model:       pickModel(req.Model, p.model),
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: &req.Temperature,
		TopP:        &req.TopP,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Provider: config.ProviderOpenAI, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &ServiceError{
			Provider: config.ProviderOpenAI,
			Cause:    fmt.Errorf("openai response %d: %s", resp.StatusCode, string(body)),
		}
	}

	var completion openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &ServiceError{Provider: config.ProviderOpenAI, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return "", &ServiceError{Provider: config.ProviderOpenAI, Cause: ErrEmptyResponse}
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

type ollamaProvider struct {
	client  HTTPClient
	baseURL string
	model   string
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type ollamaRequestPayload struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []openAIMessage `json:"messages"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaResponse struct {
	Done    bool `json:"done"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

func (p *ollamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := buildOllamaRequest(pickModel(req.Model, p.model), req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Provider: config.ProviderOllama, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &ServiceError{
			Provider: config.ProviderOllama,
			Cause:    fmt.Errorf("ollama response %d: %s", resp.StatusCode, string(body)),
		}
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ServiceError{Provider: config.ProviderOllama, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return "", &ServiceError{Provider: config.ProviderOllama, Cause: errors.New(out.Error)}
	}
	return strings.TrimSpace(out.Message.Content), nil
}

func buildOllamaRequest(model string, req Request) ([]byte, error) {
	payload := ollamaRequestPayload{
		Model:    model,
		Stream:   false,
		Messages: buildMessages(req),
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		},
	}
	return json.Marshal(payload)
}

func buildMessages(req Request) []openAIMessage {
	messages := make([]openAIMessage, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openAIMessage{
			Role:    "system",
			Content: req.SystemPrompt,
		})
	}
	return append(messages, openAIMessage{
		Role:    "user",
		Content: req.Content,
	})
}

func pickModel(requested, fallback string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return fallback
}

// Timeout returns a copy of the factory with a custom timeout.
func (f *Factory) Timeout(d time.Duration) *Factory {
	client := &http.Client{
		Timeout: d,
	}
	return NewFactory(client)
}
