package store

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB creates an in-memory SQLite database for testing
func newTestDB(t *testing.T) (*gorm.DB, *live.Tracker) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, or each pooled connection gets its own ":memory:" database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Cheer{},
	)
	require.NoError(t, err)

	return db, live.NewTracker()
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// newTestUser builds an unregistered user with the given plaintext password.
func newTestUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Bio:      models.DefaultBio,
		JoinedAt: time.Now(),
	}
	require.NoError(t, user.SetPassword(password, bcrypt.MinCost))
	return user
}

// recv reads one emission from a live channel or fails the test.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a live emission")
		panic("unreachable")
	}
}
