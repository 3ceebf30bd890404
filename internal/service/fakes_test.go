package service

import (
	"context"
	"sync"

	"github.com/voltlab/askds/internal/domain"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls []string
	err   error
	vec   []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
	streamFunc   func(ctx context.Context, prompt string) (<-chan domain.GenerationChunk, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.generateFunc == nil {
		return "", nil
	}
	return f.generateFunc(ctx, prompt)
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string) (<-chan domain.GenerationChunk, error) {
	if f.streamFunc == nil {
		ch := make(chan domain.GenerationChunk)
		close(ch)
		return ch, nil
	}
	return f.streamFunc(ctx, prompt)
}

// streamOf builds a closed channel pre-filled with the given chunks.
func streamOf(chunks ...domain.GenerationChunk) <-chan domain.GenerationChunk {
	ch := make(chan domain.GenerationChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

type fakeRetriever struct {
	mu      sync.Mutex
	queries []domain.SearchQuery
	docs    []domain.RetrievedDocument
	err     error
}

func (f *fakeRetriever) Search(_ context.Context, q domain.SearchQuery) ([]domain.RetrievedDocument, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeRetriever) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeStore struct {
	mu   sync.Mutex
	rows []domain.DocumentRow
	err  error
}

func (f *fakeStore) Insert(_ context.Context, rows []domain.DocumentRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}
