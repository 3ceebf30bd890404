package query

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltlab/askds/internal/api/middleware"
	"github.com/voltlab/askds/internal/domain"
	"github.com/voltlab/askds/internal/service"
)

// Handler handles question-answering requests
type Handler struct {
	answerService *service.AnswerService
}

// NewHandler creates a new query handler
func NewHandler(answerService *service.AnswerService) *Handler {
	return &Handler{answerService: answerService}
}

// RegisterRoutes registers query routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/query", h.Query)
}

// answerFrame wraps an answer increment in the upstream generation
// response shape so it reaches the client unrepackaged.
func answerFrame(text string) gin.H {
	return gin.H{
		"candidates": []gin.H{
			{"content": gin.H{"parts": []gin.H{{"text": text}}}},
		},
	}
}

// Query answers a question as a text/event-stream. Frames are
// data: <json> pairs: answer increments in upstream candidate shape,
// {summary} side events whenever the memory update lands, and a
// terminal {error} once streaming has begun and something fails.
func (h *Handler) Query(c *gin.Context) {
	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bearer := c.GetString(middleware.ContextKeyBearer)

	sessionID, events, err := h.answerService.Answer(c.Request.Context(), &req, bearer)
	if err != nil {
		// Nothing streamed yet: a structured failure is still possible.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Session-Id", sessionID)

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		writeFrame(w, ev)
		// An error frame terminates the stream; headers are already
		// out, so in-band is the only failure channel left.
		return ev.Type != domain.EventError
	})
}

func writeFrame(w io.Writer, ev domain.StreamEvent) {
	var payload any
	switch ev.Type {
	case domain.EventSummary:
		payload = gin.H{"summary": ev.Text}
	case domain.EventError:
		payload = gin.H{"error": ev.Text}
	default:
		payload = answerFrame(ev.Text)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
