package domain

// TextChunk is a bounded-length slice of document text prepared for
// embedding. Chunks overlap their predecessor by a configured number
// of characters to preserve context across boundaries.
type TextChunk struct {
	Content  string `json:"content"`
	SourceID string `json:"source_id"`
}

// RetrievedDocument is one ranked similarity-search hit. It exists
// only for the duration of a single query.
type RetrievedDocument struct {
	Content  string  `json:"content"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
}

// DocumentRow is the row shape inserted into the vector store at
// ingestion time, one per chunk.
type DocumentRow struct {
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	User      string         `json:"user,omitempty"`
}

// IngestRequest is the request to ingest extracted document text
type IngestRequest struct {
	FileName string `json:"file_name" binding:"required"`
	Text     string `json:"text" binding:"required"`
	UserID   string `json:"user_id,omitempty"`
}

// IngestResult reports the outcome of one document ingestion
type IngestResult struct {
	FileName   string `json:"file_name"`
	ChunkCount int    `json:"chunk_count"`
}
