package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltlab/askds/internal/repository"
)

// Handler handles session inspection and reset requests
type Handler struct {
	sessions *repository.SessionRepository
}

// NewHandler creates a new session handler
func NewHandler(sessions *repository.SessionRepository) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.GET("/:id", h.Get)
		sessions.GET("/:id/messages", h.GetMessages)
		sessions.DELETE("/:id", h.Delete)
	}
}

// Get returns a session with its rolling summary
func (h *Handler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetMessages returns all turns of a session in chronological order
func (h *Handler) GetMessages(c *gin.Context) {
	turns, err := h.sessions.GetTurns(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": turns})
}

// Delete resets a session, dropping its turns and summary
func (h *Handler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
