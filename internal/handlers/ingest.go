package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/ingest"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/response"
)

// IngestHandler exposes mailbox ingestion: a read-only preview and the
// persisting variant.
type IngestHandler struct {
	ingestor *ingest.Ingestor
}

func NewIngestHandler(ingestor *ingest.Ingestor) *IngestHandler {
	return &IngestHandler{ingestor: ingestor}
}

// GET /api/ingest-from-inbox?limit=5 — triage unseen mail without saving.
func (h *IngestHandler) Preview(c *gin.Context) {
	if h.ingestor == nil {
		response.Error(c, errors.NewBadRequest("mailbox ingestion is not configured"))
		return
	}

	limit := clampLimit(parseIntQuery(c, "limit", 5))
	outcomes, err := h.ingestor.Preview(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, errors.Wrap(err, "inbox fetch failed"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"count": len(outcomes),
		"items": outcomes,
	})
}

// POST /api/ingest-and-save?limit=5 — triage unseen mail and persist it.
func (h *IngestHandler) IngestAndSave(c *gin.Context) {
	if h.ingestor == nil {
		response.Error(c, errors.NewBadRequest("mailbox ingestion is not configured"))
		return
	}

	limit := clampLimit(parseIntQuery(c, "limit", 5))
	items, err := h.ingestor.IngestAndSave(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, errors.Wrap(err, "inbox ingestion failed"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"saved": len(items),
		"items": items,
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > 50 {
		return 50
	}
	return limit
}
