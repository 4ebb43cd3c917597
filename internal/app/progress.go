package app

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
)

const defaultProgressWidth = 100

// progressPrinter writes one line per pipeline event, cut to the terminal
// width so long failure causes do not wrap.
type progressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, width: terminalWidth(out)}
}

func (p *progressPrinter) Observe(event assist.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, fitWidth(event.String(), p.width))
}

func fitWidth(line string, width int) string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return line
	}
	return runewidth.Truncate(line, width, "...")
}

func terminalWidth(w io.Writer) int {
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultProgressWidth
}
