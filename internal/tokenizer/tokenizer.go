package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE vocabulary used when none is configured.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to BPE token identifiers and back.
type Tokenizer struct {
	name     string
	encoding *tiktoken.Tiktoken
}

// New loads the named tiktoken encoding.
func New(encoding string) (*Tokenizer, error) {
	name := strings.TrimSpace(encoding)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", name, err)
	}
	return &Tokenizer{name: name, encoding: enc}, nil
}

// Encode returns the token sequence for text. Special-token markers are
// allowed; tiktoken panics on disallowed ones, and their ids decode back to
// the same marker text.
func (t *Tokenizer) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.encoding.Encode(text, allowAllSpecial, nil)
}

var allowAllSpecial = []string{"all"}

// Decode turns a token sequence back into text.
func (t *Tokenizer) Decode(tokens []int) string {
	if len(tokens) == 0 {
		return ""
	}
	return t.encoding.Decode(tokens)
}

// Count returns the number of tokens text encodes to.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}

// Name reports the encoding name.
func (t *Tokenizer) Name() string {
	return t.name
}
