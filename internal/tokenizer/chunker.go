package tokenizer

import (
	"fmt"
)

// DefaultChunkSize is the input token budget of a single chunk.
const DefaultChunkSize = 8000

// Chunk is a contiguous window of a document's token sequence.
type Chunk struct {
	Index  int
	Tokens []int
	Text   string
}

// Chunker splits text into fixed-size BPE token windows.
type Chunker struct {
	tokenizer *Tokenizer
	limit     int
}

// NewChunker constructs a chunker for the provided token limit.
func NewChunker(tok *Tokenizer, limit int) (*Chunker, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	return &Chunker{
		tokenizer: tok,
		limit:     limit,
	}, nil
}

// Split encodes text once and cuts the tokens into windows of exactly limit
// tokens; the last window holds the remainder. Text that encodes to no
// tokens yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(tokens)+c.limit-1)/c.limit)
	for start := 0; start < len(tokens); start += c.limit {
		end := min(start+c.limit, len(tokens))
		window := tokens[start:end]
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Tokens: window,
			Text:   c.tokenizer.Decode(window),
		})
	}
	return chunks
}

// SplitText is Split reduced to the decoded chunk texts.
func (c *Chunker) SplitText(text string) []string {
	chunks := c.Split(text)
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Text
	}
	return out
}

// Limit returns the chunk size limit in tokens.
func (c *Chunker) Limit() int {
	if c == nil {
		return 0
	}
	return c.limit
}
