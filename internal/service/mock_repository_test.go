package service

import (
	"context"
	"errors"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, query, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func TestAuthService_StoreFailures(t *testing.T) {
	storeErr := models.NewInternalError(errors.New("connection reset"))

	t.Run("Signup surfaces create errors", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "u1" && u.Password != "password"
		})).Return(storeErr)

		_, err := NewAuthService(repo, bcrypt.MinCost).Signup(context.Background(), SignupInput{
			Username: "u1", Email: "u1@test.com", Password: "password",
		})
		assert.ErrorIs(t, err, storeErr)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("Conflict without a visible owner keeps the store error", func(t *testing.T) {
		repo := new(MockUserRepository)
		conflict := models.NewConflictError("duplicate", nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(conflict)
		repo.On("GetByUsername", mock.Anything, "u1").Return(nil, nil)
		repo.On("GetByEmail", mock.Anything, "u1@test.com").Return(nil, nil)

		_, err := NewAuthService(repo, bcrypt.MinCost).Signup(context.Background(), SignupInput{
			Username: "u1", Email: "u1@test.com", Password: "password",
		})
		assert.ErrorIs(t, err, conflict)
		repo.AssertExpectations(t)
	})

	t.Run("Authenticate reports lookup errors", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByUsername", mock.Anything, "u1").Return(nil, storeErr)

		user, ok, err := NewAuthService(repo, bcrypt.MinCost).Authenticate(context.Background(), "u1", "password")
		require.ErrorIs(t, err, storeErr)
		assert.False(t, ok)
		assert.Nil(t, user)
	})

	t.Run("Signup validation never touches the store", func(t *testing.T) {
		repo := new(MockUserRepository)
		_, err := NewAuthService(repo, bcrypt.MinCost).Signup(context.Background(), SignupInput{})
		assertCode(t, err, models.CodeValidation)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
