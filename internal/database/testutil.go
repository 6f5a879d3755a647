package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestUser represents a user created for testing
type TestUser struct {
	ID       int64
	GoogleID string
	Email    string
	Name     string
}

var testUserCounter atomic.Int64

// CreateTestUser inserts a user with a unique generated email and Google ID.
func CreateTestUser(t *testing.T, db *DB) *TestUser {
	t.Helper()
	n := testUserCounter.Add(1)
	return CreateTestUserWithEmail(t, db, fmt.Sprintf("testuser%d@example.com", n))
}

// CreateTestUserWithEmail creates a test user with a specific email
func CreateTestUserWithEmail(t *testing.T, db *DB, email string) *TestUser {
	t.Helper()
	n := testUserCounter.Add(1)

	googleID := fmt.Sprintf("test-google-id-%d", n)
	name := fmt.Sprintf("Test User %d", n)

	result, err := db.Exec(`
		INSERT INTO users (google_id, email, name)
		VALUES (?, ?, ?)
	`, googleID, email, name)
	require.NoError(t, err, "failed to create test user")

	id, err := result.LastInsertId()
	require.NoError(t, err, "failed to get test user ID")

	return &TestUser{
		ID:       id,
		GoogleID: googleID,
		Email:    email,
		Name:     name,
	}
}
