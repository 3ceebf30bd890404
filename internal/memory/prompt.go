package memory

import (
	"fmt"
	"strings"

	"github.com/voltlab/askds/internal/domain"
)

// buildSummaryPrompt renders the prompt for the rolling summary
// update from structured inputs, keeping prompt construction
// independent of any network call.
func buildSummaryPrompt(current string, recent []domain.ConversationTurn, query string, maxWords int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You maintain a running summary of a technical conversation about hardware datasheets.\n")
	fmt.Fprintf(&b, "Rewrite the summary to include the new exchange. Keep it under %d words.\n", maxWords)
	b.WriteString("Focus on technical entities: part numbers, components, parameters, and values. Return only the summary text.\n\n")

	if current != "" {
		fmt.Fprintf(&b, "Current summary:\n%s\n\n", current)
	} else {
		b.WriteString("Current summary:\n(none yet)\n\n")
	}

	if len(recent) > 0 {
		b.WriteString("Recent turns:\n")
		for _, t := range recent {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "New user query:\n%s\n", query)
	return b.String()
}
