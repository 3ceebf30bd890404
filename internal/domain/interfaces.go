package domain

import "context"

// Embedder turns a unit of text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationChunk is one decoded text increment from a streaming
// generation call. Err is set on the final chunk when the upstream
// stream fails mid-flight.
type GenerationChunk struct {
	Text string
	Err  error
}

// Generator issues calls against the generative model service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan GenerationChunk, error)
}

// SearchQuery parameterizes one similarity search. Bearer scopes the
// search to the caller's rows; Sources optionally restricts candidates
// to the named files.
type SearchQuery struct {
	Vector    []float32
	Threshold float64
	Limit     int
	Sources   []string
	Bearer    string
}

// Retriever issues similarity searches against the vector store.
type Retriever interface {
	Search(ctx context.Context, q SearchQuery) ([]RetrievedDocument, error)
}

// DocumentStore persists embedded chunks into the vector store.
type DocumentStore interface {
	Insert(ctx context.Context, rows []DocumentRow) error
}
