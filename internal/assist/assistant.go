package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gamzabox/humble-doc-cli/internal/config"
)

// Operation names the kind of work a run performs.
type Operation string

const (
	OperationGenerate  Operation = "generate"
	OperationEdit      Operation = "edit"
	OperationSummarize Operation = "summarize"
)

// ErrEmptyKeyword is returned when no keyword or instruction is supplied.
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// Result is the outcome of one operation. It is handed to export explicitly.
type Result struct {
	RunID     string
	Operation Operation
	Keyword   string
	Language  Language
	Text      string
	// Chunks is the number of source chunks processed; zero for generation
	// and for an empty source document.
	Chunks    int
	Model     string
	CreatedAt time.Time
}

// Empty reports whether the run produced no text.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Splitter cuts a document into ordered chunk texts.
type Splitter interface {
	SplitText(text string) []string
	Limit() int
}

// Options configures an Assistant.
type Options struct {
	Transformer Transformer
	Chunker     Splitter
	Generation  config.Generation
	Model       string
	Logger      zerolog.Logger
	Observer    Observer
	Now         func() time.Time
}

// Assistant runs generate, edit and summarize operations. It holds no
// per-run state, so one value can serve several runs at once.
type Assistant struct {
	transformer Transformer
	chunker     Splitter
	generation  config.Generation
	temperature float64
	topP        float64
	model       string
	logger      zerolog.Logger
	observer    Observer
	now         func() time.Time
}

// New validates options and builds an Assistant.
func New(opts Options) (*Assistant, error) {
	if opts.Transformer == nil {
		return nil, errors.New("transformer is required")
	}
	if opts.Chunker == nil {
		return nil, errors.New("chunker is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gen := opts.Generation.WithDefaults()
	temperature, topP := gen.Sampling()
	return &Assistant{
		transformer: opts.Transformer,
		chunker:     opts.Chunker,
		generation:  gen,
		temperature: temperature,
		topP:        topP,
		model:       opts.Model,
		logger:      opts.Logger,
		observer:    opts.Observer,
		now:         now,
	}, nil
}

// WithObserver returns a copy reporting progress to observer.
func (a *Assistant) WithObserver(observer Observer) *Assistant {
	clone := *a
	clone.observer = observer
	return &clone
}

// Generate writes a new document about keyword with a single call.
func (a *Assistant) Generate(ctx context.Context, keyword string, lang Language) (Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Result{}, ErrEmptyKeyword
	}
	result := a.newResult(OperationGenerate, keyword, lang)
	logger := a.runLogger(result)
	logger.Info().Msg("generation started")

	out, err := a.transformer.Invoke(ctx, Call{
		System:      lang.GeneratePrompt,
		Content:     keyword,
		MaxTokens:   a.generation.GenerateMaxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	})
	if err != nil {
		logger.Error().Err(err).Msg("generation failed")
		return Result{}, err
	}
	result.Text = out
	logger.Info().Int("chars", len(out)).Msg("generation finished")
	return result, nil
}

// Edit rewrites source chunk by chunk according to instruction.
func (a *Assistant) Edit(ctx context.Context, source, instruction string, lang Language) (Result, error) {
	step := Step{
		Operation:   OperationEdit,
		System:      lang.EditInstruction(),
		MaxTokens:   a.generation.EditMaxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	}
	return a.transform(ctx, source, instruction, lang, step)
}

// Summarize summarizes each chunk of source and merges the summaries.
func (a *Assistant) Summarize(ctx context.Context, source, instruction string, lang Language) (Result, error) {
	step := Step{
		Operation:   OperationSummarize,
		System:      lang.SummarizeInstruction(),
		MaxTokens:   a.generation.SummaryMaxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	}
	return a.transform(ctx, source, instruction, lang, step)
}

func (a *Assistant) transform(ctx context.Context, source, instruction string, lang Language, step Step) (Result, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Result{}, ErrEmptyKeyword
	}
	step.Instruction = instruction

	result := a.newResult(step.Operation, instruction, lang)
	logger := a.runLogger(result)

	chunks := a.chunker.SplitText(source)
	result.Chunks = len(chunks)
	logger.Info().Int("chunks", len(chunks)).Int("chunk_tokens", a.chunker.Limit()).Msg("pipeline started")
	if len(chunks) == 0 {
		logger.Warn().Msg("source document is empty")
		return result, nil
	}

	pipeline := NewPipeline(a.transformer, a.observer, logger)
	results, err := pipeline.Run(ctx, chunks, step)
	if err != nil {
		logger.Error().Err(err).Int("completed", len(results)).Msg("pipeline failed")
		return Result{}, err
	}

	recombiner := NewRecombiner(a.transformer, a.observer)
	switch step.Operation {
	case OperationSummarize:
		merged, err := recombiner.CombineSummaries(ctx, results, lang, Step{
			MaxTokens:   a.generation.MergeMaxTokens,
			Temperature: a.temperature,
			TopP:        a.topP,
		})
		if err != nil {
			logger.Error().Err(err).Msg("summary merge failed")
			return Result{}, err
		}
		result.Text = merged
	default:
		result.Text = recombiner.CombineEdits(results)
	}

	logger.Info().Int("chars", len(result.Text)).Msg("pipeline finished")
	return result, nil
}

func (a *Assistant) newResult(op Operation, keyword string, lang Language) Result {
	return Result{
		RunID:     uuid.NewString(),
		Operation: op,
		Keyword:   keyword,
		Language:  lang,
		Model:     a.model,
		CreatedAt: a.now(),
	}
}

func (a *Assistant) runLogger(result Result) zerolog.Logger {
	return a.logger.With().
		Str("run_id", result.RunID).
		Str("operation", string(result.Operation)).
		Str("language", result.Language.Code).
		Logger()
}

// Run dispatches op to the matching method.
func (a *Assistant) Run(ctx context.Context, op Operation, source, keyword string, lang Language) (Result, error) {
	switch op {
	case OperationGenerate:
		return a.Generate(ctx, keyword, lang)
	case OperationEdit:
		return a.Edit(ctx, source, keyword, lang)
	case OperationSummarize:
		return a.Summarize(ctx, source, keyword, lang)
	default:
		return Result{}, fmt.Errorf("unsupported operation %q", op)
	}
}
