package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/voltlab/askds/internal/domain"
)

// SessionRepository handles session and turn persistence
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, session.ID, session.Summary, session.CreatedAt, session.UpdatedAt)

	return err
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(id string) (*domain.Session, error) {
	session := &domain.Session{}

	err := r.db.QueryRow(`
		SELECT id, summary, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.Summary, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

// SaveSummary replaces the session's rolling summary
func (r *SessionRepository) SaveSummary(id, summary string) error {
	_, err := r.db.Exec(`
		UPDATE sessions SET summary = ?, updated_at = ? WHERE id = ?
	`, summary, time.Now(), id)
	return err
}

// Touch updates a session's updated_at timestamp
func (r *SessionRepository) Touch(id string) error {
	_, err := r.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// Delete removes a session and all its turns
func (r *SessionRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// CreateTurn appends a turn to a session
func (r *SessionRepository) CreateTurn(turn *domain.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	turn.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Role, turn.Text, turn.CreatedAt)

	return err
}

// GetTurns retrieves all turns for a session in chronological order
func (r *SessionRepository) GetTurns(sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTurns(rows)
}

// GetRecentTurns retrieves the last n turns for a session in
// chronological order.
func (r *SessionRepository) GetRecentTurns(sessionID string, n int) ([]domain.ConversationTurn, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	// Reverse back to chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func scanTurns(rows *sql.Rows) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Role,
			&turn.Text, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
