package source

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func readDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return paragraphsFromXML(r.Editable().GetContent())
}

// skippedContainers hold drawing content such as text boxes. Their
// paragraphs are not part of the body text.
var skippedContainers = map[string]bool{
	"AlternateContent": true,
	"txbxContent":      true,
}

// paragraphsFromXML returns the text of each paragraph directly under
// w:body, one per line. Table cells, content controls and text boxes are
// left out, and only run content (w:t, w:tab, w:br, w:cr) is read.
func paragraphsFromXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		paraDepth  int
		skipped    int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			name, parent := el.Name.Local, ""
			if n := len(stack); n > 0 {
				parent = stack[n-1]
			}
			stack = append(stack, name)

			switch {
			case skippedContainers[name]:
				skipped++
			case skipped > 0:
			case name == "p" && parent == "body":
				paraDepth = len(stack)
				current.Reset()
			case paraDepth == 0 || parent != "r":
			case name == "t":
				inText = true
			case name == "tab":
				current.WriteByte('\t')
			case name == "br", name == "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			name := el.Name.Local
			if len(stack) == paraDepth {
				paragraphs = append(paragraphs, current.String())
				paraDepth = 0
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if skippedContainers[name] && skipped > 0 {
				skipped--
			}
			if name == "t" {
				inText = false
			}
		case xml.CharData:
			if inText && paraDepth > 0 && skipped == 0 {
				current.Write(el)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
