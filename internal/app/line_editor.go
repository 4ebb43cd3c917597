package app

import (
	"fmt"
	"io"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// lineBuffer is the rune slice being edited and the cursor position in it.
type lineBuffer struct {
	runes  []rune
	cursor int
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{
		runes:  make([]rune, 0, 64),
		cursor: 0,
	}
}

func (b *lineBuffer) Insert(r rune) {
	if b.cursor == len(b.runes) {
		b.runes = append(b.runes, r)
	} else {
		b.runes = append(b.runes[:b.cursor], append([]rune{r}, b.runes[b.cursor:]...)...)
	}
	b.cursor++
}

func (b *lineBuffer) MoveLeft() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	return true
}

func (b *lineBuffer) MoveRight() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.cursor++
	return true
}

func (b *lineBuffer) MoveHome() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor = 0
	return true
}

func (b *lineBuffer) MoveEnd() bool {
	if b.cursor == len(b.runes) {
		return false
	}
	b.cursor = len(b.runes)
	return true
}

func (b *lineBuffer) Backspace() bool {
	if b.cursor == 0 || len(b.runes) == 0 {
		return false
	}
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
	return true
}

func (b *lineBuffer) Delete() bool {
	if b.cursor >= len(b.runes) || len(b.runes) == 0 {
		return false
	}
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
	return true
}

// KillToStart removes everything before the cursor (Ctrl+U).
func (b *lineBuffer) KillToStart() bool {
	if b.cursor == 0 {
		return false
	}
	b.runes = append(b.runes[:0], b.runes[b.cursor:]...)
	b.cursor = 0
	return true
}

// KillToEnd removes everything from the cursor on (Ctrl+K).
func (b *lineBuffer) KillToEnd() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.runes = b.runes[:b.cursor]
	return true
}

// DeleteWord removes the word left of the cursor (Ctrl+W). Paths and URLs
// are typed here often, so '/' also ends a word.
func (b *lineBuffer) DeleteWord() bool {
	if b.cursor == 0 {
		return false
	}
	start := b.cursor
	for start > 0 && isWordBreak(b.runes[start-1]) {
		start--
	}
	for start > 0 && !isWordBreak(b.runes[start-1]) {
		start--
	}
	b.runes = append(b.runes[:start], b.runes[b.cursor:]...)
	b.cursor = start
	return true
}

func isWordBreak(r rune) bool {
	return unicode.IsSpace(r) || r == '/'
}

// Apply performs the editing action bound to key and reports whether the
// line changed.
func (b *lineBuffer) Apply(key keyPress) bool {
	switch key.kind {
	case keyRune:
		b.Insert(key.r)
		return true
	case keyLeft:
		return b.MoveLeft()
	case keyRight:
		return b.MoveRight()
	case keyHome:
		return b.MoveHome()
	case keyEnd:
		return b.MoveEnd()
	case keyBackspace:
		return b.Backspace()
	case keyDelete:
		return b.Delete()
	case keyKillToEnd:
		return b.KillToEnd()
	case keyKillToStart:
		return b.KillToStart()
	case keyDeleteWord:
		return b.DeleteWord()
	default:
		return false
	}
}

// Replace swaps the whole line for text and puts the cursor at its end.
func (b *lineBuffer) Replace(text string) bool {
	if text == string(b.runes) && b.cursor == len(b.runes) {
		return false
	}
	b.runes = append(b.runes[:0], []rune(text)...)
	b.cursor = len(b.runes)
	return true
}

func (b *lineBuffer) Len() int {
	return len(b.runes)
}

func (b *lineBuffer) String() string {
	return string(b.runes)
}

func (b *lineBuffer) CursorWidth() int {
	if b.cursor == 0 {
		return 0
	}
	return runewidth.StringWidth(string(b.runes[:b.cursor]))
}

func (b *lineBuffer) ContentWidth() int {
	if len(b.runes) == 0 {
		return 0
	}
	return runewidth.StringWidth(string(b.runes))
}

func renderLine(w io.Writer, prompt string, buf *lineBuffer) {
	line := buf.String()
	_, _ = fmt.Fprintf(w, "\r%s%s", prompt, line)
	_, _ = fmt.Fprint(w, "\x1b[K")
	moveLeft := buf.ContentWidth() - buf.CursorWidth()
	if moveLeft > 0 {
		_, _ = fmt.Fprintf(w, "\x1b[%dD", moveLeft)
	}
}
