package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltlab/askds/internal/domain"
)

func newTestRepo(t *testing.T) *SessionRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	session := &domain.Session{}
	require.NoError(t, repo.Create(session))
	require.NotEmpty(t, session.ID)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
	assert.Empty(t, got.Summary)
}

func TestSessionGetMissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveSummaryReplaces(t *testing.T) {
	repo := newTestRepo(t)

	session := &domain.Session{Summary: "first"}
	require.NoError(t, repo.Create(session))

	require.NoError(t, repo.SaveSummary(session.ID, "second"))

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Summary)
}

func TestRecentTurnsAreChronological(t *testing.T) {
	repo := newTestRepo(t)

	session := &domain.Session{}
	require.NoError(t, repo.Create(session))

	for i := 0; i < 6; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		require.NoError(t, repo.CreateTurn(&domain.ConversationTurn{
			SessionID: session.ID,
			Role:      role,
			Text:      fmt.Sprintf("turn %d", i),
		}))
	}

	recent, err := repo.GetRecentTurns(session.ID, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "turn 2", recent[0].Text)
	assert.Equal(t, "turn 5", recent[3].Text)

	all, err := repo.GetTurns(session.ID)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "turn 0", all[0].Text)
}

func TestDeleteCascadesTurns(t *testing.T) {
	repo := newTestRepo(t)

	session := &domain.Session{}
	require.NoError(t, repo.Create(session))
	require.NoError(t, repo.CreateTurn(&domain.ConversationTurn{
		SessionID: session.ID, Role: domain.RoleUser, Text: "hello",
	}))

	require.NoError(t, repo.Delete(session.ID))

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	turns, err := repo.GetTurns(session.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
