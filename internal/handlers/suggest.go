package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/services"
	"github.com/autou/mailtriage/internal/triage"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/response"
)

// ReplySuggester drafts a reply for an email. Satisfied by the Groq client.
type ReplySuggester interface {
	SuggestReply(ctx context.Context, subject, text string) (string, error)
}

// SuggestHandler produces reply drafts, via the LLM when one is configured
// and via the canned templates otherwise.
type SuggestHandler struct {
	llm    ReplySuggester
	emails *services.EmailService
}

func NewSuggestHandler(llm ReplySuggester, emails *services.EmailService) *SuggestHandler {
	return &SuggestHandler{llm: llm, emails: emails}
}

type suggestRequest struct {
	EmailID string `json:"email_id"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type suggestResponse struct {
	DraftReply string  `json:"draft_reply"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// POST /api/groq/suggest
func (h *SuggestHandler) Suggest(c *gin.Context) {
	var body suggestRequest
	if !bindAndValidate(c, &body) {
		return
	}

	ctx := c.Request.Context()
	subject := body.Subject
	text := body.Text

	if body.EmailID != "" {
		email, err := h.emails.Get(ctx, body.EmailID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if subject == "" {
			subject = email.Subject
		}
		if text == "" {
			stored, err := h.emails.BodyText(ctx, email.ID)
			if err != nil {
				response.Error(c, err)
				return
			}
			text = stored
		}
	}

	if strings.TrimSpace(subject) == "" && strings.TrimSpace(text) == "" {
		response.Error(c, errors.NewBadRequest("provide email_id or subject/text"))
		return
	}

	classified := triage.Classify(firstNonEmpty(text, subject))

	draft := ""
	if h.llm != nil {
		suggested, err := h.llm.SuggestReply(ctx, subject, text)
		if err != nil {
			response.Error(c, err)
			return
		}
		draft = suggested
	} else {
		draft = triage.SuggestReply(classified.Category, text)
	}

	response.Success(c, http.StatusOK, suggestResponse{
		DraftReply: draft,
		Category:   classified.Category,
		Confidence: classified.Confidence,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
