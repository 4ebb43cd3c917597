package app

import "strings"

// inputHistory keeps entered lines in memory so keywords, paths and URLs
// can be recalled. It is never written to disk.
type inputHistory struct {
	entries []string
	limit   int
	pos     int
	draft   string
}

func newInputHistory(limit int) *inputHistory {
	return &inputHistory{limit: limit}
}

// Add records line unless it is blank or repeats the newest entry.
func (h *inputHistory) Add(line string) {
	defer h.Rewind()
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append(h.entries[:0], h.entries[len(h.entries)-h.limit:]...)
	}
}

// Rewind stops browsing and forgets the saved draft.
func (h *inputHistory) Rewind() {
	h.pos = len(h.entries)
	h.draft = ""
}

// Previous steps back one entry. current is kept as the draft the first
// time browsing starts so Next can return to it.
func (h *inputHistory) Previous(current string) (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	if h.pos == len(h.entries) {
		h.draft = current
	}
	h.pos--
	return h.entries[h.pos], true
}

// Next steps forward, ending at the draft.
func (h *inputHistory) Next() (string, bool) {
	if h.pos >= len(h.entries) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.pos], true
}
