package domain

import "time"

// Session represents a chat session with its rolling summary
type Session struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn represents one message in a session
type ConversationTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// DirectiveKind tags the outcome of query rewriting
type DirectiveKind int

const (
	// DirectiveSearch carries a standalone, retrieval-ready search term
	DirectiveSearch DirectiveKind = iota
	// DirectiveClarify carries a clarification question for the user
	DirectiveClarify
)

// QueryDirective is the rewriter's verdict on the latest user turn.
// Exactly one directive is produced per turn; only Search proceeds
// to retrieval.
type QueryDirective struct {
	Kind     DirectiveKind
	Term     string
	Question string
}

// QueryRequest is the request to ask a question
type QueryRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Query     string   `json:"query" binding:"required"`
	Sources   []string `json:"sources,omitempty"`
}

// StreamEvent types
const (
	EventSummary = "summary"
	EventAnswer  = "answer"
	EventError   = "error"
)

// StreamEvent is one frame of a streamed answer. Answer events carry
// a text increment in upstream arrival order; summary events are
// side-channel memory updates and may interleave anywhere; an error
// event terminates the stream.
type StreamEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
