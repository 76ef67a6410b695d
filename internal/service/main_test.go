package service

import (
	"context"
	"sync"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type services struct {
	db       *gorm.DB
	auth     *AuthService
	users    *UserService
	messages *MessageService
	feed     *recordingPublisher
}

func newTestServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewTestDB(t)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	auth := NewAuthService(userRepo, bcrypt.MinCost)
	feed := &recordingPublisher{}
	return &services{
		db:       db,
		auth:     auth,
		users:    NewUserService(userRepo, followRepo, messageRepo, likeRepo, auth),
		messages: NewMessageService(messageRepo, likeRepo, followRepo, feed),
		feed:     feed,
	}
}

// withRedisCache routes the repository caches through miniredis for the
// rest of the test.
func withRedisCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func (s *services) signup(t *testing.T, username, password string) *models.User {
	t.Helper()
	u, err := s.auth.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@test.com",
		Password: password,
	})
	require.NoError(t, err)
	return u
}

type published struct {
	msg       *models.Message
	followers []uint
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []published
	err   error
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *models.Message, ids []uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{msg: msg, followers: ids})
	return p.err
}

func (p *recordingPublisher) published() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.calls...)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Message)
}
