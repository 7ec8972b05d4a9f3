// datastore_test.go: shared test helpers for the datastore package
package datastore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, model := range allModels() {
		require.NoError(t, db.AutoMigrate(model))
	}

	return &DataStore{DB: db}
}

// seedTestUser creates a user for tests that need an owner
func seedTestUser(t *testing.T, ds *DataStore) User {
	t.Helper()

	user := User{
		Email:        fmt.Sprintf("user-%s@example.com", t.Name()),
		PasswordHash: "hash",
		Name:         "Test User",
	}
	require.NoError(t, ds.CreateUser(&user))
	return user
}

// seedTestNote creates a note owned by the given user
func seedTestNote(t *testing.T, ds *DataStore, userID, content string) Note {
	t.Helper()

	note := Note{
		UserID:  userID,
		Content: content,
		Source:  SourceApp,
	}
	require.NoError(t, ds.CreateNote(&note))
	return note
}
