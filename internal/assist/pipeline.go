package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// EventKind classifies pipeline progress notifications.
type EventKind int

const (
	// EventChunkDone is emitted after a chunk was transformed.
	EventChunkDone EventKind = iota + 1
	// EventChunkFailed is emitted once, for the chunk that stopped the run.
	EventChunkFailed
	// EventMerge is emitted before chunk summaries are merged.
	EventMerge
)

// Event is a progress notification. Chunk is 1-based.
type Event struct {
	Operation Operation
	Kind      EventKind
	Chunk     int
	Total     int
	Err       error
}

func (e Event) String() string {
	switch e.Kind {
	case EventChunkDone:
		return fmt.Sprintf("[%s] chunk %d/%d done", e.Operation, e.Chunk, e.Total)
	case EventChunkFailed:
		return fmt.Sprintf("[%s] chunk %d/%d failed: %v", e.Operation, e.Chunk, e.Total, e.Err)
	case EventMerge:
		return fmt.Sprintf("[%s] merging %d chunk summaries", e.Operation, e.Total)
	default:
		return fmt.Sprintf("[%s] event %d", e.Operation, int(e.Kind))
	}
}

// Observer receives progress notifications in the order they happen.
type Observer func(Event)

// PipelineError reports the chunk whose transform aborted a run.
type PipelineError struct {
	Operation Operation
	Chunk     int
	Total     int
	Cause     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: chunk %d/%d failed: %v", e.Operation, e.Chunk, e.Total, e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Step is the per-chunk work of one operation.
type Step struct {
	Operation   Operation
	System      string
	Instruction string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Pipeline applies a Step to every chunk of a document, one call at a time.
type Pipeline struct {
	transformer Transformer
	observer    Observer
	logger      zerolog.Logger
}

// NewPipeline builds a pipeline; observer may be nil.
func NewPipeline(transformer Transformer, observer Observer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		transformer: transformer,
		observer:    observer,
		logger:      logger,
	}
}

// Run transforms chunks strictly in index order. The first failure stops the
// run: later chunks are never attempted, and the results gathered so far are
// returned together with a *PipelineError naming the 1-based chunk.
func (p *Pipeline) Run(ctx context.Context, chunks []string, step Step) ([]string, error) {
	total := len(chunks)
	results := make([]string, 0, total)
	for i, chunk := range chunks {
		out, err := p.transformer.Invoke(ctx, Call{
			System:      step.System,
			Content:     userContent(step.Instruction, chunk),
			MaxTokens:   step.MaxTokens,
			Temperature: step.Temperature,
			TopP:        step.TopP,
		})
		if err != nil {
			p.logger.Warn().Err(err).Int("chunk", i+1).Int("total", total).Msg("chunk transform failed")
			p.notify(Event{Operation: step.Operation, Kind: EventChunkFailed, Chunk: i + 1, Total: total, Err: err})
			return results, &PipelineError{Operation: step.Operation, Chunk: i + 1, Total: total, Cause: err}
		}
		results = append(results, out)
		p.logger.Debug().Int("chunk", i+1).Int("total", total).Msg("chunk transformed")
		p.notify(Event{Operation: step.Operation, Kind: EventChunkDone, Chunk: i + 1, Total: total})
	}
	return results, nil
}

func (p *Pipeline) notify(event Event) {
	if p.observer != nil {
		p.observer(event)
	}
}

func userContent(instruction, chunk string) string {
	if strings.TrimSpace(instruction) == "" {
		return chunk
	}
	return instruction + blankLine + chunk
}

const blankLine = "\n\n"
