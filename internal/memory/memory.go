package memory

import (
	"github.com/voltlab/askds/internal/domain"
)

// Window is a FIFO window over the most recent conversation turns.
// Appending beyond capacity evicts the oldest turn.
type Window struct {
	capacity int
	turns    []domain.ConversationTurn
}

// NewWindow creates a window with the given capacity.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity}
}

// Append adds a turn, evicting the oldest once the window is full.
func (w *Window) Append(turn domain.ConversationTurn) {
	w.turns = append(w.turns, turn)
	if len(w.turns) > w.capacity {
		w.turns = w.turns[len(w.turns)-w.capacity:]
	}
}

// Turns returns the retained turns in chronological order.
func (w *Window) Turns() []domain.ConversationTurn {
	return w.turns
}

// Recent returns up to n of the most recent turns, oldest first.
func (w *Window) Recent(n int) []domain.ConversationTurn {
	if n <= 0 || len(w.turns) == 0 {
		return nil
	}
	if n > len(w.turns) {
		n = len(w.turns)
	}
	return w.turns[len(w.turns)-n:]
}

// Memory is one session's conversational state: the rolling summary
// plus a bounded window of recent turns. The summary is monotonically
// replaced, never appended to; it survives until the session resets.
type Memory struct {
	SessionID string
	Summary   string
	window    *Window
}

// New creates a memory for a session, seeding the window with the
// given turns (oldest first).
func New(sessionID, summary string, turns []domain.ConversationTurn, windowSize int) *Memory {
	w := NewWindow(windowSize)
	for _, t := range turns {
		w.Append(t)
	}
	return &Memory{SessionID: sessionID, Summary: summary, window: w}
}

// AppendTurn appends a turn to the window.
func (m *Memory) AppendTurn(turn domain.ConversationTurn) {
	m.window.Append(turn)
}

// Recent returns up to n of the most recent turns, oldest first.
func (m *Memory) Recent(n int) []domain.ConversationTurn {
	return m.window.Recent(n)
}
