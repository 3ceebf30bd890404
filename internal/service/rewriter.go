package service

import (
	"context"
	"strings"

	"github.com/voltlab/askds/internal/domain"
	"go.uber.org/zap"
)

// Response prefixes the rewrite model is instructed to emit
const (
	prefixSearch    = "SEARCH:"
	prefixAmbiguous = "AMBIGUOUS:"
)

// Rewriter resolves referential ambiguity in the latest user turn
// using the conversation memory. It either rewrites the turn into a
// standalone search term or flags it as unresolvable with a
// clarification question. Rewriting never fails the turn: on any
// model error or unrecognized output the original query is searched
// as-is.
type Rewriter struct {
	generator domain.Generator
	logger    *zap.Logger
}

// NewRewriter creates a rewriter
func NewRewriter(generator domain.Generator, logger *zap.Logger) *Rewriter {
	return &Rewriter{generator: generator, logger: logger}
}

// Rewrite produces exactly one directive for the user's turn.
func (r *Rewriter) Rewrite(ctx context.Context, query, summary string, history []domain.ConversationTurn) domain.QueryDirective {
	prompt := buildRewritePrompt(query, summary, history)

	raw, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("query rewrite failed, searching original query", zap.Error(err))
		return domain.QueryDirective{Kind: domain.DirectiveSearch, Term: query}
	}

	return ParseDirective(raw, query)
}

// ParseDirective parses the model's raw response into a tagged
// directive. A response must begin with a recognized literal prefix;
// anything else degrades to searching the original query.
func ParseDirective(raw, originalQuery string) domain.QueryDirective {
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, prefixAmbiguous):
		question := strings.TrimSpace(strings.TrimPrefix(trimmed, prefixAmbiguous))
		if question == "" {
			question = "Could you clarify what you are referring to?"
		}
		return domain.QueryDirective{Kind: domain.DirectiveClarify, Question: question}

	case strings.HasPrefix(trimmed, prefixSearch):
		term := strings.TrimSpace(strings.TrimPrefix(trimmed, prefixSearch))
		if term == "" {
			term = originalQuery
		}
		return domain.QueryDirective{Kind: domain.DirectiveSearch, Term: term}

	default:
		return domain.QueryDirective{Kind: domain.DirectiveSearch, Term: originalQuery}
	}
}
