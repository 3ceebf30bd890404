package service

import (
	"context"
	"strings"
	"sync"

	"github.com/voltlab/askds/internal/config"
	"github.com/voltlab/askds/internal/domain"
	"github.com/voltlab/askds/internal/memory"
	"github.com/voltlab/askds/internal/repository"
	"go.uber.org/zap"
)

// AnswerService orchestrates one question turn: it forks a background
// summary update, rewrites the query against the conversation memory,
// embeds and retrieves on a Search directive, and streams the
// generated answer. The summary update runs off the critical path; its
// result arrives as a side-channel event whenever it completes and its
// failure never fails the turn.
type AnswerService struct {
	cfg        *config.Config
	sessions   *repository.SessionRepository
	embedder   domain.Embedder
	generator  domain.Generator
	retriever  domain.Retriever
	rewriter   *Rewriter
	summarizer *memory.Summarizer
	logger     *zap.Logger
}

// NewAnswerService creates a new answer service
func NewAnswerService(
	cfg *config.Config,
	sessions *repository.SessionRepository,
	embedder domain.Embedder,
	generator domain.Generator,
	retriever domain.Retriever,
	logger *zap.Logger,
) *AnswerService {
	return &AnswerService{
		cfg:        cfg,
		sessions:   sessions,
		embedder:   embedder,
		generator:  generator,
		retriever:  retriever,
		rewriter:   NewRewriter(generator, logger),
		summarizer: memory.NewSummarizer(generator, cfg.Memory.SummaryMaxWords, logger),
		logger:     logger,
	}
}

// Answer runs the pipeline for one user turn. It returns the session
// ID and a channel of stream events; the channel closes once both the
// answer and the background summary task have finished. A non-nil
// error means nothing has been streamed yet and the caller may still
// report a structured failure.
func (s *AnswerService) Answer(ctx context.Context, req *domain.QueryRequest, bearer string) (string, <-chan domain.StreamEvent, error) {
	session, mem, err := s.loadMemory(req.SessionID)
	if err != nil {
		return "", nil, err
	}

	// Record the user turn; prompts below use the pre-turn window.
	userTurn := domain.ConversationTurn{
		SessionID: session.ID,
		Role:      domain.RoleUser,
		Text:      req.Query,
	}
	if err := s.sessions.CreateTurn(&userTurn); err != nil {
		return "", nil, err
	}

	events := make(chan domain.StreamEvent, 64)
	var wg sync.WaitGroup

	// Background summary update, forked before the critical path and
	// never awaited on it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.updateSummary(ctx, mem, req.Query, events)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, req, mem, bearer, events)
	}()

	go func() {
		wg.Wait()
		close(events)
	}()

	return session.ID, events, nil
}

// run executes the critical path: rewrite, embed, retrieve, prompt,
// generate, stream.
func (s *AnswerService) run(ctx context.Context, req *domain.QueryRequest, mem *memory.Memory, bearer string, events chan<- domain.StreamEvent) {
	history := mem.Recent(s.cfg.Memory.HistoryTurns)

	directive := s.rewriter.Rewrite(ctx, req.Query, mem.Summary, history)

	if directive.Kind == domain.DirectiveClarify {
		// No retrieval or generation: the clarification is the answer.
		emit(ctx, events, domain.StreamEvent{Type: domain.EventAnswer, Text: directive.Question})
		s.saveAssistantTurn(mem.SessionID, directive.Question)
		return
	}

	vector, err := s.embedder.Embed(ctx, directive.Term)
	if err != nil {
		s.fail(ctx, events, err)
		return
	}

	docs, err := s.retriever.Search(ctx, domain.SearchQuery{
		Vector:    vector,
		Threshold: s.cfg.RAG.MatchThreshold,
		Limit:     s.cfg.RAG.MatchCount,
		Sources:   req.Sources,
		Bearer:    bearer,
	})
	if err != nil {
		s.fail(ctx, events, err)
		return
	}

	// The prompt carries the original question, not the rewrite.
	prompt := buildAnswerPrompt(mem.Summary, history, joinContext(docs), req.Query)

	stream, err := s.generator.GenerateStream(ctx, prompt)
	if err != nil {
		s.fail(ctx, events, err)
		return
	}

	var answer strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			s.fail(ctx, events, chunk.Err)
			return
		}
		answer.WriteString(chunk.Text)
		if !emit(ctx, events, domain.StreamEvent{Type: domain.EventAnswer, Text: chunk.Text}) {
			return
		}
	}

	s.saveAssistantTurn(mem.SessionID, answer.String())
}

// updateSummary runs the rolling summary update and emits the result
// as a side event. Failures are swallowed: the prior summary stays.
func (s *AnswerService) updateSummary(ctx context.Context, mem *memory.Memory, query string, events chan<- domain.StreamEvent) {
	recent := mem.Recent(s.cfg.Memory.SummaryTurns)

	updated, err := s.summarizer.Update(ctx, mem.Summary, recent, query)
	if err != nil {
		return
	}
	if err := s.sessions.SaveSummary(mem.SessionID, updated); err != nil {
		s.logger.Warn("failed to persist summary", zap.Error(err))
	}
	emit(ctx, events, domain.StreamEvent{Type: domain.EventSummary, Text: updated})
}

// loadMemory resolves the session and builds its conversation memory.
func (s *AnswerService) loadMemory(sessionID string) (*domain.Session, *memory.Memory, error) {
	var session *domain.Session
	if sessionID != "" {
		found, err := s.sessions.Get(sessionID)
		if err != nil {
			return nil, nil, err
		}
		session = found
	}
	if session == nil {
		session = &domain.Session{ID: sessionID}
		if err := s.sessions.Create(session); err != nil {
			return nil, nil, err
		}
	}

	turns, err := s.sessions.GetRecentTurns(session.ID, s.cfg.Memory.HistoryTurns)
	if err != nil {
		return nil, nil, err
	}

	mem := memory.New(session.ID, session.Summary, turns, s.cfg.Memory.HistoryTurns)
	return session, mem, nil
}

func (s *AnswerService) saveAssistantTurn(sessionID, text string) {
	turn := domain.ConversationTurn{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Text:      text,
	}
	if err := s.sessions.CreateTurn(&turn); err != nil {
		s.logger.Warn("failed to persist assistant turn", zap.Error(err))
	}
	if err := s.sessions.Touch(sessionID); err != nil {
		s.logger.Warn("failed to touch session", zap.Error(err))
	}
}

func (s *AnswerService) fail(ctx context.Context, events chan<- domain.StreamEvent, err error) {
	s.logger.Error("answer pipeline failed", zap.Error(err))
	emit(ctx, events, domain.StreamEvent{Type: domain.EventError, Text: err.Error()})
}

// emit sends an event unless the caller has gone away.
func emit(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
