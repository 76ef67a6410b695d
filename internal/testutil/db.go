// Package testutil provides shared fixtures for database-backed tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seq atomic.Uint64

// NewTestDB opens a migrated SQLite database in a temp dir that is removed
// when the test ends. Foreign keys are enforced.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	url := "sqlite://" + filepath.Join(t.TempDir(), "warbler_test.db")
	db, err := database.Open(url)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with a cheap bcrypt hash of password.
// An empty username gets a unique generated one.
func CreateUser(t testing.TB, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	if username == "" {
		username = fmt.Sprintf("user%d", seq.Add(1))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:       username,
		Email:          username + "@test.com",
		Password:       string(hash),
		ImageURL:       models.DefaultImageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateMessage inserts a message authored by userID.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string) *models.Message {
	t.Helper()

	msg := &models.Message{Text: text, UserID: userID}
	require.NoError(t, db.Create(msg).Error)
	return msg
}

// Follow inserts the edge follower -> followee.
func Follow(t testing.TB, db *gorm.DB, followerID, followeeID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error)
}
