package app

import (
	"sort"
	"strings"
)

// commandNames lists every slash command handleCommand accepts.
var commandNames = []string{
	"/edit",
	"/exit",
	"/export",
	"/generate",
	"/help",
	"/language",
	"/new",
	"/quit",
	"/set-model",
	"/sum",
	"/summarize",
	"/tier",
}

// completeCommand extends a partially typed slash command. A unique match
// gets a trailing space; several matches extend to their common prefix.
func completeCommand(line string) (string, bool) {
	if !strings.HasPrefix(line, "/") || strings.ContainsRune(line, ' ') {
		return "", false
	}

	var matches []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, line) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		return matches[0] + " ", true
	}

	sort.Strings(matches)
	prefix := commonPrefix(matches[0], matches[len(matches)-1])
	if len(prefix) <= len(line) {
		return "", false
	}
	return prefix, true
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
