package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"companion/domain/entities"
	"companion/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(ttl time.Duration) *entities.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entities.Session{
		Token:       uuid.NewString(),
		Address:     "0x680288896065594F11a18D2B39a739dE81216bB4",
		Profile:     json.RawMessage(`{"account":"0x680288896065594F11a18D2B39a739dE81216bB4","nickname":"player"}`),
		AccessToken: "header.payload.signature",
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestSessionRepository_GetByToken(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("session not found", func(t *testing.T) {
		session, err := repo.GetByToken(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("session found", func(t *testing.T) {
		created := newTestSession(time.Hour)
		require.NoError(t, repo.Create(ctx, created))

		session, err := repo.GetByToken(ctx, created.Token)
		require.NoError(t, err)
		require.NotNil(t, session)

		assert.Equal(t, created.Token, session.Token)
		assert.Equal(t, created.Address, session.Address)
		assert.Equal(t, created.AccessToken, session.AccessToken)
		assert.JSONEq(t, string(created.Profile), string(session.Profile))
		assert.WithinDuration(t, created.ExpiresAt, session.ExpiresAt, time.Millisecond)
		assert.False(t, session.IsExpired())
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	created := newTestSession(time.Hour)
	require.NoError(t, repo.Create(ctx, created))

	require.NoError(t, repo.Delete(ctx, created.Token))

	session, err := repo.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.Nil(t, session)

	// Deleting an unknown token is not an error
	require.NoError(t, repo.Delete(ctx, uuid.NewString()))
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	expired := newTestSession(-time.Minute)
	live := newTestSession(time.Hour)
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, live))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	session, err := repo.GetByToken(ctx, expired.Token)
	require.NoError(t, err)
	assert.Nil(t, session)

	session, err = repo.GetByToken(ctx, live.Token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, live.Token, session.Token)
}
