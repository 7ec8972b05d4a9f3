package datastore

import (
	"testing"
	"time"

	"github.com/rmoura/notara-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	t.Run("normalizes email", func(t *testing.T) {
		user := User{Email: "  Maria@Example.COM ", PasswordHash: "hash"}
		require.NoError(t, ds.CreateUser(&user))
		assert.Equal(t, "maria@example.com", user.Email)
		assert.Equal(t, SubscriptionFree, user.SubscriptionStatus)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		err := ds.CreateUser(&User{Email: "maria@example.com", PasswordHash: "hash"})
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
	})
}

func TestGetUserByPhone(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	phone := "5511999990000"
	user := User{Email: "joao@example.com", PasswordHash: "hash", PhoneNumber: &phone}
	require.NoError(t, ds.CreateUser(&user))

	got, err := ds.GetUserByPhone(phone)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = ds.GetUserByPhone("000")
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestUserPreferences(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	user.SetPreferences(map[string]any{"language": "pt-BR", "daily_summary": true})
	require.NoError(t, ds.UpdateUser(&user))

	got, err := ds.GetUser(user.ID)
	require.NoError(t, err)
	prefs := got.GetPreferences()
	assert.Equal(t, "pt-BR", prefs["language"])
	assert.Equal(t, true, prefs["daily_summary"])
}

func TestSessions(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	session := Session{
		UserID:    user.ID,
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, ds.CreateSession(&session))

	got, err := ds.GetSessionByTokenHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.False(t, got.IsExpired())

	require.NoError(t, ds.DeactivateSession(session.ID))
	_, err = ds.GetSessionByTokenHash("abc123")
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestDeleteUserCascades(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	note := seedTestNote(t, ds, user.ID, "nota do usuário")
	require.NoError(t, ds.CreateInsight(&Insight{NoteID: note.ID, InsightType: InsightSummary, Content: "resumo"}))
	seedTestCategory(t, ds, user.ID, "Qualquer", nil)
	require.NoError(t, ds.LogUsage(&UsageLog{UserID: user.ID, APIType: APITypeChatGPT}))

	require.NoError(t, ds.DeleteUser(user.ID))

	_, err := ds.GetUser(user.ID)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	notes, total, err := ds.SearchNotes(NoteFilter{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, notes)

	categories, err := ds.GetCategories(user.ID)
	require.NoError(t, err)
	assert.Empty(t, categories)
}
