package ingest

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/autou/mailtriage/internal/triage"
)

// RawMessage is one fetched email in a transport-neutral shape, ready for
// the triage pipeline.
type RawMessage struct {
	MessageUID  string
	Subject     string
	FromEmail   string
	FromName    string
	ToEmails    []string
	CcEmails    []string
	ReceivedAt  *time.Time
	Text        string
	HTML        string
	Attachments []triage.Attachment
}

// ParseMessage decodes a full RFC 5322 message into a RawMessage. A body
// that cannot be parsed as MIME is kept wholesale as plain text; fallbackUID
// is used when the message carries no Message-ID.
func ParseMessage(raw []byte, fallbackUID string) RawMessage {
	msg := RawMessage{MessageUID: fallbackUID}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		msg.Text = string(raw)
		return msg
	}
	defer mr.Close()

	header := mr.Header
	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	}
	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageUID = id
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = &date
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromEmail = strings.ToLower(from[0].Address)
		msg.FromName = from[0].Name
	}
	msg.ToEmails = addressStrings(header, "To")
	msg.CcEmails = addressStrings(header, "Cc")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				msg.Text = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				msg.HTML = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			msg.Attachments = append(msg.Attachments, triage.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        len(body),
				Content:     body,
			})
		}
	}

	return msg
}

// AttachmentNames lists the attachment filenames, used by the importance
// scorer.
func (m RawMessage) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Filename)
	}
	return names
}

func addressStrings(header mail.Header, field string) []string {
	list, err := header.AddressList(field)
	if err != nil || len(list) == 0 {
		return nil
	}
	addrs := make([]string, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, strings.ToLower(a.Address))
	}
	return addrs
}
