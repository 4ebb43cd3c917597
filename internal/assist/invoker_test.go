package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamzabox/humble-doc-cli/internal/llm"
)

type generatorFunc func(ctx context.Context, req llm.Request) (string, error)

func (f generatorFunc) Generate(ctx context.Context, req llm.Request) (string, error) {
	return f(ctx, req)
}

func TestInvokerTrimsAndForwardsParameters(t *testing.T) {
	t.Parallel()

	var got llm.Request
	inv := NewInvoker(generatorFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "\n  result text  \n", nil
	}), "openai", "gpt-4o-mini", zerolog.Nop())

	out, err := inv.Invoke(context.Background(), Call{System: "sys", Content: "body", MaxTokens: 1000, Temperature: 0.4, TopP: 0.95})
	require.NoError(t, err)
	assert.Equal(t, "result text", out)
	assert.Equal(t, llm.Request{
		Model:        "gpt-4o-mini",
		SystemPrompt: "sys",
		Content:      "body",
		MaxTokens:    1000,
		Temperature:  0.4,
		TopP:         0.95,
	}, got)
}

func TestInvokerWrapsFailuresAsServiceError(t *testing.T) {
	t.Parallel()

	calls := 0
	inv := NewInvoker(generatorFunc(func(context.Context, llm.Request) (string, error) {
		calls++
		return "", errors.New("connection reset")
	}), "ollama", "llama3", zerolog.Nop())

	_, err := inv.Invoke(context.Background(), Call{Content: "x", MaxTokens: 10, Temperature: 0.4, TopP: 0.95})
	var svcErr *llm.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "ollama", svcErr.Provider)
	assert.Equal(t, 1, calls, "failures are not retried")
}

func TestInvokerRejectsInvalidParameters(t *testing.T) {
	t.Parallel()

	inv := NewInvoker(generatorFunc(func(context.Context, llm.Request) (string, error) {
		t.Fatal("generator must not be called")
		return "", nil
	}), "openai", "gpt-4o", zerolog.Nop())

	for _, call := range []Call{
		{MaxTokens: 0, Temperature: 0.4, TopP: 0.95},
		{MaxTokens: 10, Temperature: 1.5, TopP: 0.95},
		{MaxTokens: 10, Temperature: 0.4, TopP: -0.1},
	} {
		_, err := inv.Invoke(context.Background(), call)
		assert.Error(t, err)
	}
}

func TestLookupLanguage(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"ja", "Japanese", "japanese", "일본어"} {
		lang, err := LookupLanguage(input)
		require.NoError(t, err, input)
		assert.Equal(t, "ja", lang.Code)
	}

	_, err := LookupLanguage("klingon")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
	assert.Len(t, Languages(), 8)
	assert.Contains(t, mustLanguage(t, "de").SummarizeInstruction(), "German")
}
