package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/services"
	"github.com/autou/mailtriage/pkg/response"
)

// EmailHandler serves the triaged inbox: listing, filtering and detail.
type EmailHandler struct {
	service *services.EmailService
}

func NewEmailHandler(db *gorm.DB) (*EmailHandler, error) {
	svc, err := services.NewEmailService(db)
	if err != nil {
		return nil, err
	}
	return &EmailHandler{service: svc}, nil
}

// GET /api/emails
func (h *EmailHandler) List(c *gin.Context) {
	params := services.ListParams{
		Limit:      parseIntQuery(c, "limit", 50),
		Page:       parseIntQuery(c, "page", 1),
		Importance: strings.TrimSpace(c.Query("importance")),
		Category:   strings.TrimSpace(c.Query("category")),
		Search:     strings.TrimSpace(c.Query("search")),
	}

	emails, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"items": emails}, &response.Meta{
		Page:    params.Page,
		PerPage: params.Limit,
	})
}

// GET /api/emails/:id — accepts the internal id or the original message UID.
func (h *EmailHandler) Get(c *gin.Context) {
	email, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"meta":    email,
		"content": email.Content,
	})
}
