package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/pdftext"
	"github.com/autou/mailtriage/internal/triage"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/response"
)

// uploads above this size are rejected before reading the body
const maxUploadBytes = 10 << 20

// ProcessHandler runs ad-hoc content through the triage pipeline without
// touching the mailbox or the database.
type ProcessHandler struct{}

func NewProcessHandler() *ProcessHandler {
	return &ProcessHandler{}
}

type translateRequest struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// POST /api/translate — collapse subject/text/html into canonical text.
func (h *ProcessHandler) Translate(c *gin.Context) {
	var body translateRequest
	if !bindAndValidate(c, &body) {
		return
	}

	out := triage.Translate(body.Subject, body.Text, body.HTML, nil)
	response.Success(c, http.StatusOK, out)
}

// POST /api/process — triage pasted text or an uploaded .pdf/.txt file.
func (h *ProcessHandler) Process(c *gin.Context) {
	subject := c.PostForm("subject")
	bodyText := c.PostForm("text")

	if file, err := c.FormFile("file"); err == nil && file != nil {
		if file.Size > maxUploadBytes {
			response.Error(c, errors.NewBadRequest("file too large"))
			return
		}

		name := strings.ToLower(file.Filename)
		contentType := strings.ToLower(file.Header.Get("Content-Type"))

		f, err := file.Open()
		if err != nil {
			response.Error(c, errors.Wrap(err, "could not open upload"))
			return
		}
		defer f.Close()

		content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			response.Error(c, errors.Wrap(err, "could not read upload"))
			return
		}

		switch {
		case strings.HasSuffix(name, ".pdf") || strings.Contains(contentType, "pdf"):
			text, err := pdftext.Extract(content)
			if err != nil {
				response.Error(c, errors.NewBadRequest("could not extract text from PDF"))
				return
			}
			bodyText = text
		case strings.HasSuffix(name, ".txt"):
			bodyText = string(content)
		default:
			response.Error(c, errors.NewBadRequest("only .pdf or .txt uploads are supported"))
			return
		}
	}

	if strings.TrimSpace(subject) == "" && strings.TrimSpace(bodyText) == "" {
		response.Error(c, errors.NewBadRequest("provide text, subject or a file"))
		return
	}

	out := triage.ProcessRaw(subject, bodyText, "", nil)
	response.Success(c, http.StatusOK, out)
}
