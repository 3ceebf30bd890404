package api

import (
	"github.com/gin-gonic/gin"
	"github.com/voltlab/askds/internal/api/ingest"
	"github.com/voltlab/askds/internal/api/middleware"
	"github.com/voltlab/askds/internal/api/query"
	"github.com/voltlab/askds/internal/api/session"
	"github.com/voltlab/askds/internal/repository"
	"github.com/voltlab/askds/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	ProcessSecret string
	AllowOrigins  []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	answerService *service.AnswerService,
	ingestService *service.IngestService,
	sessionRepo *repository.SessionRepository,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Query API (caller-supplied bearer credential)
	queryHandler := query.NewHandler(answerService)
	sessionHandler := session.NewHandler(sessionRepo)
	queryGroup := r.Group("/api")
	queryGroup.Use(middleware.RequireBearer())
	queryHandler.RegisterRoutes(queryGroup)
	sessionHandler.RegisterRoutes(queryGroup)

	// Ingest webhook (shared process secret)
	ingestHandler := ingest.NewHandler(ingestService)
	ingestGroup := r.Group("/api")
	ingestGroup.Use(middleware.ProcessSecret(cfg.ProcessSecret))
	ingestHandler.RegisterRoutes(ingestGroup)

	return r
}
