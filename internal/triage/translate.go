package triage

import (
	"strings"

	"github.com/autou/mailtriage/internal/pdftext"
)

// Attachment is one decoded attachment of an ingested email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"-"`
}

// Translation is the canonical text view of an email: one cleaned string
// ready for classification, with PDF attachment text merged in.
type Translation struct {
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HasPDFText bool   `json:"has_pdf_text"`
	Length     int    `json:"length"`
}

// Translate collapses an email into its canonical text. The plain body wins
// over the HTML body; PDF attachments are appended under a separator unless
// the body is too short to stand alone, in which case everything is joined
// flat.
func Translate(subject, bodyText, bodyHTML string, attachments []Attachment) Translation {
	base := bodyText
	if strings.TrimSpace(base) == "" {
		base = HTMLToText(bodyHTML)
	}
	baseClean := CleanEmailText(base)

	var pdfTexts []string
	for _, att := range attachments {
		if !isPDF(att) {
			continue
		}
		raw, err := pdftext.Extract(att.Content)
		if err != nil {
			continue
		}
		if cleaned := CleanEmailText(raw); cleaned != "" {
			pdfTexts = append(pdfTexts, cleaned)
		}
	}

	var final string
	switch {
	case len(baseClean) < 40:
		parts := make([]string, 0, 1+len(pdfTexts))
		if baseClean != "" {
			parts = append(parts, baseClean)
		}
		parts = append(parts, pdfTexts...)
		final = strings.Join(parts, " ")
	case len(pdfTexts) > 0:
		final = baseClean + "\n\n--- Texto extraído de anexos PDF ---\n" + strings.Join(pdfTexts, "\n\n")
	default:
		final = baseClean
	}
	final = strings.TrimSpace(final)

	return Translation{
		Subject:    strings.TrimSpace(subject),
		Text:       final,
		HasPDFText: len(pdfTexts) > 0,
		Length:     len(final),
	}
}

func isPDF(att Attachment) bool {
	return strings.Contains(strings.ToLower(att.ContentType), "pdf") ||
		strings.HasSuffix(strings.ToLower(att.Filename), ".pdf")
}
