package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/sendauth"
	"github.com/autou/mailtriage/pkg/response"
)

// SendHandler exposes the two-step outbound reply authorization: request a
// confirmation code, then confirm it to queue the dispatch.
type SendHandler struct {
	service *sendauth.Service
}

func NewSendHandler(service *sendauth.Service) *SendHandler {
	return &SendHandler{service: service}
}

type sendIntentRequest struct {
	EmailID string `json:"email_id" validate:"required"`
	ToEmail string `json:"to_email" validate:"required,email"`
	Draft   string `json:"draft"`
}

// POST /api/send-intent
func (h *SendHandler) Intent(c *gin.Context) {
	var body sendIntentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	receipt, err := h.service.RequestSend(c.Request.Context(), sendauth.SendRequestInput{
		EmailID:     body.EmailID,
		ToEmail:     body.ToEmail,
		Draft:       body.Draft,
		RequesterIP: c.ClientIP(),
		RequesterUA: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, receipt)
}

type sendConfirmRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	OTP       string `json:"otp" validate:"required,len=6,numeric"`
}

// POST /api/send-confirm
func (h *SendHandler) Confirm(c *gin.Context) {
	var body sendConfirmRequest
	if !bindAndValidate(c, &body) {
		return
	}

	receipt, err := h.service.ConfirmSend(c.Request.Context(), body.RequestID, body.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, receipt)
}
