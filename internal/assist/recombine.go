package assist

import (
	"context"
	"fmt"
	"strings"
)

// Recombiner turns ordered chunk results into one document.
type Recombiner struct {
	transformer Transformer
	observer    Observer
}

// NewRecombiner builds a recombiner; observer may be nil.
func NewRecombiner(transformer Transformer, observer Observer) *Recombiner {
	return &Recombiner{transformer: transformer, observer: observer}
}

// CombineEdits joins edited chunks with a blank line, in order.
func (r *Recombiner) CombineEdits(results []string) string {
	return strings.Join(results, blankLine)
}

// CombineSummaries returns the single summary unchanged, or merges several
// summaries with one extra call. No results yield an empty string.
func (r *Recombiner) CombineSummaries(ctx context.Context, results []string, lang Language, merge Step) (string, error) {
	switch len(results) {
	case 0:
		return "", nil
	case 1:
		return results[0], nil
	}

	if r.observer != nil {
		r.observer(Event{Operation: OperationSummarize, Kind: EventMerge, Total: len(results)})
	}
	out, err := r.transformer.Invoke(ctx, Call{
		System:      lang.MergeInstruction(),
		Content:     strings.Join(results, blankLine),
		MaxTokens:   merge.MaxTokens,
		Temperature: merge.Temperature,
		TopP:        merge.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("merge summaries: %w", err)
	}
	return out, nil
}
