package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
)

// ErrEmptyResult is returned when there is no text to export.
var ErrEmptyResult = errors.New("nothing to export")

// Format is an export file format.
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "", "docx", "word":
		return FormatDOCX, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// Heading is the document title written for an operation.
func Heading(op assist.Operation) string {
	switch op {
	case assist.OperationEdit:
		return "Edited Document"
	case assist.OperationSummarize:
		return "Summarized Document"
	default:
		return "Generated Document"
	}
}

// FileName is the default file name for a result.
func FileName(result assist.Result, format Format) string {
	keyword := sanitize(result.Keyword)
	if keyword == "" {
		keyword = "untitled"
	}
	switch result.Operation {
	case assist.OperationEdit:
		return fmt.Sprintf("%s_edited_document.%s", keyword, format)
	case assist.OperationSummarize:
		return fmt.Sprintf("%s_summarized_document.%s", keyword, format)
	default:
		return fmt.Sprintf("%s_document.%s", keyword, format)
	}
}

// Write renders result in format.
func Write(w io.Writer, result assist.Result, format Format) error {
	if result.Empty() {
		return ErrEmptyResult
	}
	heading := Heading(result.Operation)
	switch format {
	case FormatDOCX:
		return writeDOCX(w, heading, result.Text)
	case FormatMarkdown:
		_, err := fmt.Fprintf(w, "# %s\n\n%s\n", heading, strings.TrimRight(result.Text, "\n"))
		return err
	case FormatHTML:
		return writeHTML(w, heading, result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile writes result into dir, or into path when it names a file, and
// returns the path written.
func WriteFile(path string, result assist.Result, format Format) (string, error) {
	if result.Empty() {
		return "", ErrEmptyResult
	}
	target := path
	if target == "" {
		target = "."
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, FileName(result, format))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, result, format); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return target, nil
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var htmlPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Heading}}</title>
</head>
<body>
<h1>{{.Heading}}</h1>
{{.Body}}</body>
</html>
`))

func writeHTML(w io.Writer, heading string, result assist.Result) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(result.Text), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	lang := result.Language.Code
	if lang == "" {
		lang = "en"
	}
	return htmlPage.Execute(w, struct {
		Lang    string
		Heading string
		Body    template.HTML
	}{Lang: lang, Heading: heading, Body: template.HTML(body.String())})
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if first, _, ok := strings.Cut(name, "\n"); ok {
		name = first
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > 60 {
		out = strings.TrimSpace(string(runes[:60]))
	}
	return out
}
