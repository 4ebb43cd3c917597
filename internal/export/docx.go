package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// template.docx holds the package parts and styles. Its body is a Heading1
// paragraph and one Normal paragraph, each carrying a placeholder.
//
//go:embed template.docx
var templateDOCX []byte

const (
	headingPlaceholder = "{{heading}}"
	bodyPlaceholder    = "{{body}}"

	// Replace encodes line breaks and tabs as docx.NEWLINE and docx.TAB.
	// A line break becomes a paragraph boundary instead, and text after a
	// tab keeps its spaces.
	paragraphBreak = `</w:t></w:r></w:p><w:p><w:r><w:t xml:space="preserve">`
	preservedTab   = `</w:t><w:tab/><w:t xml:space="preserve">`
)

// writeDOCX fills the template with heading and one paragraph per line of
// text.
func writeDOCX(w io.Writer, heading, text string) error {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(templateDOCX), int64(len(templateDOCX)))
	if err != nil {
		return fmt.Errorf("open docx template: %w", err)
	}
	defer r.Close()
	doc := r.Editable()

	// The body goes in first; the heading placeholder precedes it, so a
	// placeholder-like string inside the text is never mistaken for it.
	if err := doc.Replace(bodyPlaceholder, strings.TrimRight(text, "\r\n"), 1); err != nil {
		return fmt.Errorf("fill docx body: %w", err)
	}
	doc.ReplaceRaw(docx.NEWLINE, paragraphBreak, -1)
	doc.ReplaceRaw(docx.TAB, preservedTab, -1)

	if err := doc.Replace(headingPlaceholder, heading, 1); err != nil {
		return fmt.Errorf("fill docx heading: %w", err)
	}
	return doc.Write(w)
}
