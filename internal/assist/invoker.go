package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gamzabox/humble-doc-cli/internal/llm"
)

// Call is one request to the text-generation service.
type Call struct {
	System      string
	Content     string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Transformer performs a single transform call.
type Transformer interface {
	Invoke(ctx context.Context, call Call) (string, error)
}

// Invoker wraps exactly one generation call per Invoke. It never retries
// and keeps no state between calls.
type Invoker struct {
	generator llm.Generator
	provider  string
	model     string
	logger    zerolog.Logger
}

var _ Transformer = (*Invoker)(nil)

// NewInvoker binds a generator to a model name.
func NewInvoker(generator llm.Generator, provider, model string, logger zerolog.Logger) *Invoker {
	return &Invoker{
		generator: generator,
		provider:  provider,
		model:     model,
		logger:    logger,
	}
}

// Invoke sends the call and returns the trimmed response text. Failures are
// reported as *llm.ServiceError.
func (i *Invoker) Invoke(ctx context.Context, call Call) (string, error) {
	if call.MaxTokens <= 0 {
		return "", fmt.Errorf("max output tokens must be positive, got %d", call.MaxTokens)
	}
	if call.Temperature < 0 || call.Temperature > 1 || call.TopP < 0 || call.TopP > 1 {
		return "", fmt.Errorf("temperature and topP must be within [0,1]")
	}

	i.logger.Debug().
		Str("model", i.model).
		Int("max_tokens", call.MaxTokens).
		Int("content_bytes", len(call.Content)).
		Msg("invoke generation")

	out, err := i.generator.Generate(ctx, llm.Request{
		Model:        i.model,
		SystemPrompt: call.System,
		Content:      call.Content,
		MaxTokens:    call.MaxTokens,
		Temperature:  call.Temperature,
		TopP:         call.TopP,
	})
	if err != nil {
		i.logger.Error().Err(err).Str("model", i.model).Msg("generation failed")
		return "", llm.AsServiceError(i.provider, err)
	}
	return strings.TrimSpace(out), nil
}
