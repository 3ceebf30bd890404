package ingest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltlab/askds/internal/domain"
	"github.com/voltlab/askds/internal/service"
)

// Handler handles document ingestion requests
type Handler struct {
	ingestService *service.IngestService
}

// NewHandler creates a new ingest handler
func NewHandler(ingestService *service.IngestService) *Handler {
	return &Handler{ingestService: ingestService}
}

// RegisterRoutes registers ingest routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ingest", h.Ingest)
}

// Ingest accepts extracted document text and indexes it. One failed
// chunk embedding fails the whole document.
func (h *Handler) Ingest(c *gin.Context) {
	var req domain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
