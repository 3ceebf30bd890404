package memory

import (
	"context"
	"strings"

	"github.com/voltlab/askds/internal/domain"
	"go.uber.org/zap"
)

// Summarizer produces the updated rolling summary for a session. It
// runs off the critical path: a failed update retains the prior
// summary and is only logged, never surfaced to the caller.
type Summarizer struct {
	generator domain.Generator
	maxWords  int
	logger    *zap.Logger
}

// NewSummarizer creates a summarizer
func NewSummarizer(generator domain.Generator, maxWords int, logger *zap.Logger) *Summarizer {
	if maxWords <= 0 {
		maxWords = 50
	}
	return &Summarizer{generator: generator, maxWords: maxWords, logger: logger}
}

// Update issues one generative call conditioned on the current
// summary, the most recent turns, and the new query, and returns the
// replacement summary. On failure the prior summary comes back
// unchanged along with the error.
func (s *Summarizer) Update(ctx context.Context, current string, recent []domain.ConversationTurn, query string) (string, error) {
	prompt := buildSummaryPrompt(current, recent, query, s.maxWords)

	updated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("summary update failed, retaining prior summary", zap.Error(err))
		return current, err
	}

	updated = strings.TrimSpace(updated)
	if updated == "" {
		return current, nil
	}
	return updated, nil
}
