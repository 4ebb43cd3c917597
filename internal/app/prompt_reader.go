package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const historyLimit = 200

type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// canonicalLineReader serves piped input and tests.
type canonicalLineReader struct {
	reader *bufio.Reader
	output io.Writer
}

func newCanonicalLineReader(input io.Reader, output io.Writer) *canonicalLineReader {
	return &canonicalLineReader{
		reader: bufio.NewReader(input),
		output: output,
	}
}

func (r *canonicalLineReader) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		if _, err := fmt.Fprint(r.output, prompt); err != nil {
			return "", err
		}
	}
	text, err := r.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

type keyKind int

const (
	keyNone keyKind = iota
	keyRune
	keyEnter
	keyInterrupt
	keyEOF
	keyTab
	keyLeft
	keyRight
	keyUp
	keyDown
	keyHome
	keyEnd
	keyBackspace
	keyDelete
	keyKillToEnd
	keyKillToStart
	keyDeleteWord
)

type keyPress struct {
	kind keyKind
	r    rune
}

var controlKeys = map[byte]keyKind{
	'\r': keyEnter,
	'\n': keyEnter,
	0x01: keyHome,        // Ctrl+A
	0x02: keyLeft,        // Ctrl+B
	0x03: keyInterrupt,   // Ctrl+C
	0x04: keyEOF,         // Ctrl+D
	0x05: keyEnd,         // Ctrl+E
	0x06: keyRight,       // Ctrl+F
	0x08: keyBackspace,   // Ctrl+H
	0x09: keyTab,         // Tab
	0x0b: keyKillToEnd,   // Ctrl+K
	0x0e: keyDown,        // Ctrl+N
	0x10: keyUp,          // Ctrl+P
	0x15: keyKillToStart, // Ctrl+U
	0x17: keyDeleteWord,  // Ctrl+W
	0x7f: keyBackspace,
}

var csiKeys = map[string]keyKind{
	"A":  keyUp,
	"B":  keyDown,
	"C":  keyRight,
	"D":  keyLeft,
	"H":  keyHome,
	"1~": keyHome,
	"7~": keyHome,
	"F":  keyEnd,
	"4~": keyEnd,
	"8~": keyEnd,
	"3~": keyDelete,
}

var ss3Keys = map[byte]keyKind{
	'A': keyUp,
	'B': keyDown,
	'C': keyRight,
	'D': keyLeft,
	'H': keyHome,
	'F': keyEnd,
}

// keyDecoder turns raw terminal bytes into key presses. Unknown sequences
// decode to keyNone.
type keyDecoder struct {
	reader *bufio.Reader
}

func (d keyDecoder) Next() (keyPress, error) {
	b, err := d.reader.ReadByte()
	if err != nil {
		return keyPress{}, err
	}
	if kind, ok := controlKeys[b]; ok {
		return keyPress{kind: kind}, nil
	}
	switch {
	case b == 0x1b:
		return d.escape()
	case b < 0x20:
		return keyPress{kind: keyNone}, nil
	case b < utf8.RuneSelf:
		return keyPress{kind: keyRune, r: rune(b)}, nil
	default:
		return d.multibyte(b)
	}
}

func (d keyDecoder) escape() (keyPress, error) {
	next, err := d.reader.ReadByte()
	if err != nil {
		return keyPress{}, err
	}
	switch next {
	case '[':
		seq, err := readCSISequence(d.reader)
		if err != nil {
			return keyPress{}, err
		}
		return keyPress{kind: csiKeys[seq]}, nil
	case 'O':
		final, err := d.reader.ReadByte()
		if err != nil {
			return keyPress{}, err
		}
		return keyPress{kind: ss3Keys[final]}, nil
	default:
		return keyPress{kind: keyNone}, nil
	}
}

func (d keyDecoder) multibyte(first byte) (keyPress, error) {
	var buf [utf8.UTFMax]byte
	buf[0] = first
	size := 1
	for size < utf8.UTFMax && !utf8.FullRune(buf[:size]) {
		next, err := d.reader.ReadByte()
		if err != nil {
			return keyPress{}, err
		}
		buf[size] = next
		size++
	}
	value, width := utf8.DecodeRune(buf[:size])
	if value == utf8.RuneError && width <= 1 {
		return keyPress{kind: keyNone}, nil
	}
	return keyPress{kind: keyRune, r: value}, nil
}

func readCSISequence(reader *bufio.Reader) (string, error) {
	var seq []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return "", err
		}
		seq = append(seq, b)
		if b == '~' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || len(seq) > 6 {
			return string(seq), nil
		}
	}
}

// interactiveLineReader edits one line at a time in raw mode. Entered lines
// are kept for recall with Up and Down for the life of the process.
type interactiveLineReader struct {
	input       *os.File
	output      io.Writer
	onInterrupt func()
	history     *inputHistory
}

func newInteractiveLineReader(input *os.File, output io.Writer, onInterrupt func()) *interactiveLineReader {
	return &interactiveLineReader{
		input:       input,
		output:      output,
		onInterrupt: onInterrupt,
		history:     newInputHistory(historyLimit),
	}
}

func (r *interactiveLineReader) ReadLine(prompt string) (string, error) {
	fd := int(r.input.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	if prompt != "" {
		if _, err := fmt.Fprint(r.output, prompt); err != nil {
			return "", err
		}
	}
	return r.edit(keyDecoder{reader: bufio.NewReader(r.input)}, prompt)
}

func (r *interactiveLineReader) edit(keys keyDecoder, prompt string) (string, error) {
	buffer := newLineBuffer()
	r.history.Rewind()

	for {
		key, err := keys.Next()
		if err != nil {
			return "", err
		}

		changed := false
		switch key.kind {
		case keyEnter:
			renderLine(r.output, prompt, buffer)
			_, _ = fmt.Fprint(r.output, "\r\n")
			line := buffer.String()
			r.history.Add(line)
			return line, nil
		case keyInterrupt:
			if r.onInterrupt != nil {
				r.onInterrupt()
			}
			_, _ = fmt.Fprint(r.output, "^C\r\n")
			return "", io.EOF
		case keyEOF:
			if buffer.Len() == 0 {
				_, _ = fmt.Fprint(r.output, "\r\n")
				return "", io.EOF
			}
		case keyUp:
			if text, ok := r.history.Previous(buffer.String()); ok {
				changed = buffer.Replace(text)
			}
		case keyDown:
			if text, ok := r.history.Next(); ok {
				changed = buffer.Replace(text)
			}
		case keyTab:
			if completed, ok := completeCommand(buffer.String()); ok {
				changed = buffer.Replace(completed)
			}
		default:
			changed = buffer.Apply(key)
		}
		if changed {
			renderLine(r.output, prompt, buffer)
		}
	}
}

func createLineReader(input io.Reader, output io.Writer, onInterrupt func()) lineReader {
	if file, ok := input.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return newInteractiveLineReader(file, output, onInterrupt)
	}
	return newCanonicalLineReader(input, output)
}
