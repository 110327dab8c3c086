// Package pdftext extracts plain text from PDF attachments so their content
// can join the triage text.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract pulls the plain text out of a PDF document. Extraction failures on
// individual pages are skipped; a document that yields no text at all is not
// an error, just an empty result.
func Extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open document: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
