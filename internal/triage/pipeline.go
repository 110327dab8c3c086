package triage

// Result is the classification outcome plus the suggested reply draft.
type Result struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Reply      string   `json:"reply"`
	Highlights []string `json:"highlights"`
}

// Outcome pairs the canonical text of a processed email with its triage
// result.
type Outcome struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Result  Result `json:"result"`
}

// ProcessTranslated runs classification and reply suggestion over text that
// already went through Translate.
func ProcessTranslated(subject, text string) Result {
	c := Classify(text)
	return Result{
		Category:   c.Category,
		Confidence: c.Confidence,
		Reply:      SuggestReply(c.Category, text),
		Highlights: c.Highlights,
	}
}

// ProcessRaw is the full pipeline for one raw email: translate to canonical
// text, then classify and draft a reply.
func ProcessRaw(subject, bodyText, bodyHTML string, attachments []Attachment) Outcome {
	t := Translate(subject, bodyText, bodyHTML, attachments)
	return Outcome{
		Subject: t.Subject,
		Text:    t.Text,
		Result:  ProcessTranslated(t.Subject, t.Text),
	}
}
