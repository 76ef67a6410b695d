package repository

import (
	"context"
	"testing"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

func newUser(name string) *models.User {
	return &models.User{
		Username:       name,
		Email:          name + "@test.com",
		Password:       "HASHED_PASSWORD",
		ImageURL:       models.DefaultImageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
}

func TestUserRepository_CreatePostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newUser("testuser"))
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreatePostgresOtherError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value in column"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newUser("testuser"))
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := newUser("testuser")
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)
	assert.Empty(t, byID.Bio)
	assert.Empty(t, byID.Location)
	assert.Equal(t, models.DefaultImageURL, byID.ImageURL)

	byName, err := repo.GetByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "HASHED_PASSWORD", byName.Password)

	missing, err := repo.GetByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.GetByEmail(ctx, "nobody@test.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("dup")))

	sameName := newUser("dup")
	sameName.Email = "other@test.com"
	assert.True(t, models.HasCode(repo.Create(ctx, sameName), models.CodeConflict))

	sameEmail := newUser("other")
	sameEmail.Email = "dup@test.com"
	assert.True(t, models.HasCode(repo.Create(ctx, sameEmail), models.CodeConflict))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "alpha", "password")
	testutil.CreateUser(t, db, "beta", "password")

	require.NoError(t, repo.UpdateFields(ctx, a.ID, map[string]interface{}{"bio": "hi", "location": "Earth"}))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Bio)
	assert.Equal(t, "Earth", got.Location)

	err = repo.UpdateFields(ctx, a.ID, map[string]interface{}{"username": "beta"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	err = repo.UpdateFields(ctx, 9999, map[string]interface{}{"bio": "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	assert.NoError(t, repo.UpdateFields(ctx, a.ID, nil))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	gone := testutil.CreateUser(t, db, "gone", "password")
	stay := testutil.CreateUser(t, db, "stay", "password")

	goneMsg := testutil.CreateMessage(t, db, gone.ID, "bye")
	stayMsg := testutil.CreateMessage(t, db, stay.ID, "still here")
	testutil.Follow(t, db, gone.ID, stay.ID)
	testutil.Follow(t, db, stay.ID, gone.ID)
	require.NoError(t, db.Create(&models.Like{UserID: stay.ID, MessageID: goneMsg.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: gone.ID, MessageID: stayMsg.ID}).Error)

	require.NoError(t, repo.Delete(ctx, gone.ID))

	var count int64
	db.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(1), count, "other users' messages are untouched")
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Like{}).Count(&count)
	assert.Zero(t, count)

	assert.True(t, models.HasCode(repo.Delete(ctx, gone.ID), models.CodeNotFound))
}

func TestUserRepository_Search(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"alice", "alina", "bob"} {
		testutil.CreateUser(t, db, name, "password")
	}

	users, err := repo.Search(ctx, "ali", 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.Search(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	byIDs, err := repo.GetByIDs(ctx, []uint{users[0].ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestUserRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"a_b", "axb", "100%", "1000"} {
		testutil.CreateUser(t, db, name, "password")
	}

	users, err := repo.Search(ctx, "a_b", 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a_b", users[0].Username)

	users, err = repo.Search(ctx, "0%", 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "100%", users[0].Username)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
