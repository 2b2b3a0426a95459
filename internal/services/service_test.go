package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minhvu/schedly-be/internal/database"
)

// newTestDB opens an in-memory SQLite database with the full schema. The
// pool is capped at one connection so every query sees the same memory DB.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// registerTestUser creates an account directly through the service.
func registerTestUser(t *testing.T, svc *UserService, username, email string) string {
	t.Helper()
	user, err := svc.Register(username, email, "password123", "")
	require.NoError(t, err)
	return user.ID
}

func strptr(s string) *string { return &s }

func boolptr(b bool) *bool { return &b }
