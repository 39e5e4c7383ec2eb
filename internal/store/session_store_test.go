package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/platelens/platelens/internal/db"
	"github.com/platelens/platelens/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSessionStoreCreate(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, domain.StageUploaded, session.Stage)
	assert.Zero(t, session.Rounds)
}

func TestSessionStoreGetByID(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)
	ctx := context.Background()

	created, err := store.Create(ctx)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, created.Stage, retrieved.Stage)
}

func TestSessionStoreGetByIDMissing(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)

	retrieved, err := store.GetByID(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSessionStoreUpdate(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	session.Stage = domain.StageAwaitingAnswer
	session.Rounds = 1
	session.Question = "Was the chicken fried or grilled?"
	session.RawResponse = `{"question": "Was the chicken fried or grilled?"}`

	err = store.Update(ctx, session)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageAwaitingAnswer, retrieved.Stage)
	assert.Equal(t, 1, retrieved.Rounds)
	assert.Equal(t, "Was the chicken fried or grilled?", retrieved.Question)
}

func TestSessionStoreUpdateMissing(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)

	err := store.Update(context.Background(), &domain.Session{ID: "no-such-session", Stage: domain.StageDone})
	assert.Error(t, err)
}

func TestSessionStoreDelete(t *testing.T) {
	d := openTestDB(t)

	store := NewSessionStore(d)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	err = store.Delete(ctx, session.ID)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

// Deleting a session must cascade to its photos, turns, and estimates.
func TestSessionStoreDeleteCascades(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	sessions := NewSessionStore(d)
	photos := NewMealPhotoStore(d)
	turns := NewTurnStore(d)
	estimates := NewEstimateStore(d)

	session, err := sessions.Create(ctx)
	require.NoError(t, err)

	_, err = photos.Create(ctx, session.ID, "key.jpg", "image/jpeg")
	require.NoError(t, err)
	_, err = turns.Create(ctx, session.ID, 0, "prompt", "response")
	require.NoError(t, err)
	_, err = estimates.Replace(ctx, session.ID, []*domain.FoodItemEstimate{{Name: "Rice", Calories: 350}})
	require.NoError(t, err)

	err = sessions.Delete(ctx, session.ID)
	require.NoError(t, err)

	photo, err := photos.GetBySessionID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, photo)

	remainingTurns, err := turns.ListBySessionID(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, remainingTurns)

	remainingItems, err := estimates.ListBySessionID(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, remainingItems)
}
