package app

import (
	"strings"
	"testing"
)

func TestLineBufferInsertWithCursorMovement(t *testing.T) {
	buf := newLineBuffer()
	for _, r := range "hello" {
		buf.Insert(r)
	}
	buf.MoveLeft()
	buf.MoveLeft()
	buf.Insert('X')

	if got := buf.String(); got != "helXlo" {
		t.Fatalf("expected buffer to be %q, got %q", "helXlo", got)
	}

	if cursor := buf.CursorWidth(); cursor != 4 {
		t.Fatalf("expected cursor width 4 after insertion, got %d", cursor)
	}
}

func TestLineBufferSupportsCJKRunes(t *testing.T) {
	buf := newLineBuffer()
	for _, r := range []rune{'한', '글'} {
		buf.Insert(r)
	}
	buf.MoveLeft()
	buf.Insert('テ')

	if got := buf.String(); got != "한テ글" {
		t.Fatalf("expected buffer to be %q, got %q", "한テ글", got)
	}

	if cursor := buf.CursorWidth(); cursor != 4 {
		t.Fatalf("expected cursor width 4 for CJK handling, got %d", cursor)
	}
}

func TestRenderLineProducesExpectedCursorMovement(t *testing.T) {
	buf := newLineBuffer()
	for _, r := range []rune{'你', '好', '!'} {
		buf.Insert(r)
	}
	buf.MoveLeft()

	var builder strings.Builder
	renderLine(&builder, "humble-doc[ko]> ", buf)

	got := builder.String()
	expected := "\rhumble-doc[ko]> 你好!\x1b[K\x1b[1D"
	if got != expected {
		t.Fatalf("render output mismatch\nexpected: %q\ngot:      %q", expected, got)
	}
}

func TestLineBufferKillCommands(t *testing.T) {
	buf := newLineBuffer()
	for _, r := range "docs/report.docx" {
		buf.Insert(r)
	}

	if !buf.DeleteWord() || buf.String() != "docs/" {
		t.Fatalf("DeleteWord left %q", buf.String())
	}
	if !buf.DeleteWord() || buf.String() != "" {
		t.Fatalf("second DeleteWord left %q", buf.String())
	}

	for _, r := range "summarize this" {
		buf.Insert(r)
	}
	buf.MoveHome()
	buf.MoveRight()
	if !buf.KillToEnd() || buf.String() != "s" {
		t.Fatalf("KillToEnd left %q", buf.String())
	}
	if !buf.KillToStart() || buf.String() != "" || buf.cursor != 0 {
		t.Fatalf("KillToStart left %q cursor %d", buf.String(), buf.cursor)
	}
	if buf.KillToStart() || buf.KillToEnd() || buf.DeleteWord() {
		t.Fatalf("kill commands on empty buffer must report no change")
	}
}

func TestLineBufferApplyAndReplace(t *testing.T) {
	buf := newLineBuffer()
	for _, key := range []keyPress{
		{kind: keyRune, r: 'a'},
		{kind: keyRune, r: 'c'},
		{kind: keyLeft},
		{kind: keyRune, r: 'b'},
		{kind: keyEnd},
	} {
		buf.Apply(key)
	}
	if buf.String() != "abc" || buf.cursor != 3 {
		t.Fatalf("buffer = %q cursor %d", buf.String(), buf.cursor)
	}
	if buf.Apply(keyPress{kind: keyTab}) {
		t.Fatalf("keys without an editing action must report no change")
	}

	if !buf.Replace("요약") || buf.Len() != 2 || buf.cursor != 2 {
		t.Fatalf("Replace left %q cursor %d", buf.String(), buf.cursor)
	}
	if buf.Replace("요약") {
		t.Fatalf("replacing with the same text must report no change")
	}
}
