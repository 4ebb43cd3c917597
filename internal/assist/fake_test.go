package assist

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// scriptedTransformer answers calls from a reply function and records them.
type scriptedTransformer struct {
	mu    sync.Mutex
	calls []Call
	reply func(n int, call Call) (string, error)
}

func (s *scriptedTransformer) Invoke(_ context.Context, call Call) (string, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	if s.reply == nil {
		return "out:" + lastLine(call.Content), nil
	}
	return s.reply(n, call)
}

func (s *scriptedTransformer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// echoChunk returns the chunk part of the user content.
func echoChunk(_ int, call Call) (string, error) {
	return lastLine(call.Content), nil
}

// failAt fails the n-th call (0-based) and echoes the rest.
func failAt(target int, cause error) func(int, Call) (string, error) {
	return func(n int, call Call) (string, error) {
		if n == target {
			return "", cause
		}
		return echoChunk(n, call)
	}
}

func lastLine(content string) string {
	if idx := strings.LastIndex(content, blankLine); idx >= 0 {
		return content[idx+len(blankLine):]
	}
	return content
}

// fixedSplitter splits on "|" so tests control chunk boundaries directly.
type fixedSplitter struct{}

func (fixedSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "|")
}

func (fixedSplitter) Limit() int { return 8000 }

var errQuota = errors.New("quota exceeded")
