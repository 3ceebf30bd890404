package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltlab/askds/internal/config"
	"github.com/voltlab/askds/internal/domain"
	"github.com/voltlab/askds/internal/repository"
	"github.com/voltlab/askds/internal/service"
	"go.uber.org/zap"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type stubGenerator struct {
	rewrite   string
	summary   string
	tokens    []string
	streamErr error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "running summary") {
		if s.summary == "" {
			return "", errors.New("summary model down")
		}
		return s.summary, nil
	}
	return s.rewrite, nil
}

func (s *stubGenerator) GenerateStream(context.Context, string) (<-chan domain.GenerationChunk, error) {
	ch := make(chan domain.GenerationChunk, len(s.tokens)+1)
	for _, tok := range s.tokens {
		ch <- domain.GenerationChunk{Text: tok}
	}
	if s.streamErr != nil {
		ch <- domain.GenerationChunk{Err: s.streamErr}
	}
	close(ch)
	return ch, nil
}

type stubRetriever struct {
	docs []domain.RetrievedDocument
	err  error
}

func (s *stubRetriever) Search(context.Context, domain.SearchQuery) ([]domain.RetrievedDocument, error) {
	return s.docs, s.err
}

// streamRecorder adds the http.CloseNotifier method that gin's
// Context.Stream requires of the ResponseWriter.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

type stubStore struct{}

func (stubStore) Insert(context.Context, []domain.DocumentRow) error { return nil }

func newTestRouter(t *testing.T, gen *stubGenerator, ret *stubRetriever) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewSessionRepository(db)

	cfg := &config.Config{
		RAG:    config.RAGConfig{ChunkSize: 500, ChunkOverlap: 50, MatchThreshold: 0.5, MatchCount: 5},
		Memory: config.MemoryConfig{SummaryTurns: 2, HistoryTurns: 4, SummaryMaxWords: 50},
		Ingest: config.IngestConfig{Workers: 2},
	}

	answerService := service.NewAnswerService(cfg, repo, stubEmbedder{}, gen, ret, zap.NewNop())
	ingestService := service.NewIngestService(cfg, stubEmbedder{}, stubStore{}, zap.NewNop())

	return SetupRouter(answerService, ingestService, repo, RouterConfig{
		ProcessSecret: "hook-secret",
		AllowOrigins:  []string{"*"},
	})
}

// sseFrames splits an event-stream body into its decoded JSON frames.
func sseFrames(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if !strings.HasPrefix(block, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func frameText(frame map[string]any) string {
	cands, ok := frame["candidates"].([]any)
	if !ok || len(cands) == 0 {
		return ""
	}
	content := cands[0].(map[string]any)["content"].(map[string]any)
	parts := content["parts"].([]any)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.(map[string]any)["text"].(string))
	}
	return b.String()
}

func TestQueryRequiresBearer(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, &stubRetriever{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryStreamsAnswerAndSummary(t *testing.T) {
	gen := &stubGenerator{
		rewrite: "SEARCH: STM32F4 maximum voltage",
		summary: "Discussing STM32F4 limits.",
		tokens:  []string{"The maximum ", "voltage is 4.0V."},
	}
	router := newTestRouter(t, gen, &stubRetriever{docs: []domain.RetrievedDocument{
		{Content: "VDD max is 4.0V.", Score: 0.9},
	}})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"what's its max voltage?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Session-Id"))

	frames := sseFrames(t, w.Body.String())

	var answer strings.Builder
	summaries := 0
	for _, frame := range frames {
		if s, ok := frame["summary"]; ok {
			summaries++
			assert.Equal(t, "Discussing STM32F4 limits.", s)
			continue
		}
		require.NotContains(t, frame, "error")
		answer.WriteString(frameText(frame))
	}
	assert.Equal(t, "The maximum voltage is 4.0V.", answer.String())
	assert.Equal(t, 1, summaries)
}

func TestQueryClarificationIsSingleAnswerFrame(t *testing.T) {
	gen := &stubGenerator{
		rewrite: "AMBIGUOUS: Which component do you mean?",
		summary: "First contact.",
	}
	router := newTestRouter(t, gen, &stubRetriever{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"what's its max voltage?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var answerFrames []map[string]any
	for _, frame := range sseFrames(t, w.Body.String()) {
		if _, ok := frame["candidates"]; ok {
			answerFrames = append(answerFrames, frame)
		}
	}
	require.Len(t, answerFrames, 1)
	assert.Equal(t, "Which component do you mean?", frameText(answerFrames[0]))
}

func TestQueryFailureAfterHeadersIsErrorFrame(t *testing.T) {
	gen := &stubGenerator{
		rewrite: "SEARCH: anything",
		summary: "Summary.",
	}
	router := newTestRouter(t, gen, &stubRetriever{
		err: &domain.RetrievalError{Err: errors.New("store unreachable")},
	})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"anything?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)

	// Headers were already out: failure is an in-band frame, not a status
	assert.Equal(t, http.StatusOK, w.Code)

	frames := sseFrames(t, w.Body.String())
	var errFrames []map[string]any
	for _, frame := range frames {
		if _, ok := frame["error"]; ok {
			errFrames = append(errFrames, frame)
		}
	}
	require.Len(t, errFrames, 1)
	assert.Contains(t, errFrames[0]["error"], "store unreachable")
}

func TestIngestRequiresProcessSecret(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, &stubRetriever{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest",
		strings.NewReader(`{"file_name":"lm317.pdf","text":"The LM317 is a regulator."}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestWithSecret(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, &stubRetriever{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest",
		strings.NewReader(`{"file_name":"lm317.pdf","text":"The LM317 is a regulator."}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Process-Secret", "hook-secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result domain.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "lm317.pdf", result.FileName)
	assert.Equal(t, 1, result.ChunkCount)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, &stubRetriever{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	gen := &stubGenerator{
		rewrite: "SEARCH: STM32F4",
		summary: "Discussing STM32F4.",
		tokens:  []string{"It is an MCU."},
	}
	router := newTestRouter(t, gen, &stubRetriever{})

	// Create a session by querying
	qw := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"what is the STM32F4?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(qw, req)
	require.Equal(t, http.StatusOK, qw.Code)
	sessionID := qw.Header().Get("X-Session-Id")
	require.NotEmpty(t, sessionID)

	// Messages are recorded
	w := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID+"/messages", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var messages struct {
		Messages []domain.ConversationTurn `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages.Messages, 2)
	assert.Equal(t, domain.RoleUser, messages.Messages[0].Role)

	// Reset drops the session
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sessionID, nil)
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID, nil)
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
