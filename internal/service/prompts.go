package service

import (
	"fmt"
	"strings"

	"github.com/voltlab/askds/internal/domain"
)

// buildRewritePrompt renders the query-rewriting prompt. The model is
// instructed to answer with exactly one of two literal prefixes so the
// response can be parsed into a directive.
func buildRewritePrompt(query, summary string, history []domain.ConversationTurn) string {
	var b strings.Builder

	b.WriteString("You resolve ambiguity in questions about hardware datasheets.\n")
	b.WriteString("Decide whether the latest question contains a pronoun or reference that cannot be resolved from the conversation so far.\n\n")
	b.WriteString("Respond with exactly one line:\n")
	b.WriteString("AMBIGUOUS: <a short question asking the user what they are referring to>, only if the reference has no clear antecedent in the summary or recent turns.\n")
	b.WriteString("SEARCH: <a standalone, retrieval-ready rewrite of the question with all references resolved>, otherwise.\n")
	b.WriteString("For greetings or questions that need no rewrite, return SEARCH: with the question unchanged.\n\n")

	if summary != "" {
		fmt.Fprintf(&b, "Conversation summary:\n%s\n\n", summary)
	}
	if len(history) > 0 {
		b.WriteString("Recent turns:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Latest question:\n%s\n", query)
	return b.String()
}

// buildAnswerPrompt renders the final answer prompt from structured
// inputs: the rolling summary, recent history, retrieved context, and
// the user's original (not rewritten) question.
func buildAnswerPrompt(summary string, history []domain.ConversationTurn, context, question string) string {
	var b strings.Builder

	b.WriteString("You are an expert in embedded systems datasheets.\n")
	b.WriteString("Answer the question from the provided context. Prefer the context over general knowledge; ")
	b.WriteString("use general knowledge only to fill gaps the context leaves open.\n")
	b.WriteString("Answer directly, without preamble.\n\n")

	if summary != "" {
		fmt.Fprintf(&b, "Conversation summary:\n%s\n\n", summary)
	}
	if len(history) > 0 {
		b.WriteString("Recent turns:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Context:\n%s\n\n", context)
	fmt.Fprintf(&b, "Question:\n%s\n\nAnswer:\n", question)
	return b.String()
}

// joinContext concatenates retrieved document contents in retrieval
// order.
func joinContext(docs []domain.RetrievedDocument) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}
