package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/voltlab/askds/internal/chunker"
	"github.com/voltlab/askds/internal/config"
	"github.com/voltlab/askds/internal/domain"
	"go.uber.org/zap"
)

// IngestService turns extracted document text into embedded chunks in
// the vector store. Chunks are embedded concurrently; one chunk's
// failure fails the whole document but does not cancel siblings
// already in flight.
type IngestService struct {
	cfg      *config.Config
	chunker  *chunker.SentenceChunker
	embedder domain.Embedder
	store    domain.DocumentStore
	logger   *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	cfg *config.Config,
	embedder domain.Embedder,
	store domain.DocumentStore,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		cfg:      cfg,
		chunker:  chunker.NewSentenceChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Ingest chunks, embeds, and stores one document's text.
func (s *IngestService) Ingest(ctx context.Context, req *domain.IngestRequest) (*domain.IngestResult, error) {
	chunks := s.chunker.Chunk(req.Text, req.FileName)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document has no text", domain.ErrInvalidRequest)
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.DocumentRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = domain.DocumentRow{
			Content:   chunk.Content,
			Embedding: vectors[i],
			Metadata:  map[string]any{"fileName": req.FileName},
			User:      req.UserID,
		}
	}

	if err := s.store.Insert(ctx, rows); err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		zap.String("file_name", req.FileName),
		zap.Int("chunks", len(chunks)),
	)

	return &domain.IngestResult{FileName: req.FileName, ChunkCount: len(chunks)}, nil
}

// embedChunks embeds all chunks through a bounded worker pool. There
// is no ordering dependency between chunks; results land at their
// chunk's index. The first error wins, in-flight siblings run to
// completion.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.TextChunk) ([][]float32, error) {
	workers := s.cfg.Ingest.Workers
	if workers <= 0 {
		workers = 8
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, len(chunks))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			vec, err := s.embedder.Embed(ctx, chunk.Content)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			vectors[i] = vec
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
