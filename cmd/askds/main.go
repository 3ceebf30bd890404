package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/voltlab/askds/internal/api"
	"github.com/voltlab/askds/internal/config"
	"github.com/voltlab/askds/internal/llm/gemini"
	"github.com/voltlab/askds/internal/repository"
	"github.com/voltlab/askds/internal/service"
	"github.com/voltlab/askds/internal/vectorstore/supabase"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load .env if present
	_ = godotenv.Load()

	// Load configuration (fails fast on missing credentials)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize session database
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db)

	// External collaborators: embedding/generation and the vector store
	llmClient, err := gemini.NewClient(gemini.Config{
		BaseURL:         cfg.Google.BaseURL,
		APIKey:          cfg.Google.APIKey,
		EmbeddingModel:  cfg.Google.EmbeddingModel,
		GenerativeModel: cfg.Google.GenerativeModel,
	})
	if err != nil {
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}

	vectorStore, err := supabase.NewClient(supabase.Config{
		URL:        cfg.Supabase.URL,
		ServiceKey: cfg.Supabase.ServiceKey,
		Table:      cfg.Supabase.Table,
	})
	if err != nil {
		logger.Fatal("Failed to create Supabase client", zap.Error(err))
	}

	// Initialize services
	answerService := service.NewAnswerService(
		cfg,
		sessionRepo,
		llmClient,
		llmClient,
		vectorStore,
		logger,
	)

	ingestService := service.NewIngestService(
		cfg,
		llmClient,
		vectorStore,
		logger,
	)

	// Setup router
	router := api.SetupRouter(answerService, ingestService, sessionRepo, api.RouterConfig{
		ProcessSecret: cfg.Ingest.ProcessSecret,
		AllowOrigins:  []string{"*"},
	})

	// Create HTTP server. Streaming responses stay open well past
	// normal request lifetimes, so no write timeout.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting AskDS server", zap.String("address", cfg.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
