// Package seed fills a database with demo users, messages, follows and
// likes. It is meant for development and tests only.
package seed

import (
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every seeded user can log in with.
const DefaultPassword = "password123"

// Options controls how much data Run creates.
type Options struct {
	Users           int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	MaxDays         int
	Clean           bool
	BcryptCost      int
	RandomSeed      int64
}

// DefaultOptions is a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Users:           20,
		MessagesPerUser: 5,
		FollowsPerUser:  5,
		LikesPerUser:    8,
		MaxDays:         30,
		Clean:           true,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// Result summarizes what Run created.
type Result struct {
	Users    []models.User
	Messages int
	Follows  int
	Likes    int
}

// Seeder writes generated data through one gorm handle.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder creates a Seeder. A zero RandomSeed picks a time-based seed.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(seed)}
}

// Run optionally clears the tables, then seeds users, their messages, a
// follow mesh and likes.
func (s *Seeder) Run() (*Result, error) {
	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	users, err := s.SeedUsers(s.opts.Users)
	if err != nil {
		return nil, err
	}
	res := &Result{Users: users}

	var messages []models.Message
	if messages, err = s.SeedMessages(users, s.opts.MessagesPerUser); err != nil {
		return nil, err
	}
	res.Messages = len(messages)

	if res.Follows, err = s.SeedFollows(users, s.opts.FollowsPerUser); err != nil {
		return nil, err
	}
	if res.Likes, err = s.SeedLikes(users, messages, s.opts.LikesPerUser); err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("messages", res.Messages),
		slog.Int("follows", res.Follows),
		slog.Int("likes", res.Likes))
	return res, nil
}

// ClearAll deletes every row, children first.
func (s *Seeder) ClearAll() error {
	for _, model := range []interface{}{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// SeedUsers creates n users sharing DefaultPassword. The hash is computed
// once since bcrypt dominates seeding time.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]models.User, n)
	for i := range users {
		users[i] = s.buildUser(i, string(hash))
	}
	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

func (s *Seeder) buildUser(i int, hash string) models.User {
	username := fmt.Sprintf("%s_%d", s.faker.Username(), i)
	if len(username) > 30 {
		username = username[len(username)-30:]
	}
	return models.User{
		Username:       username,
		Email:          fmt.Sprintf("%s@%s", username, s.faker.DomainName()),
		Password:       hash,
		ImageURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		HeaderImageURL: models.DefaultHeaderImageURL,
		Bio:            s.faker.Sentence(8),
		Location:       s.faker.City(),
	}
}

// SeedMessages posts perUser messages for each user, spread over the last
// MaxDays days.
func (s *Seeder) SeedMessages(users []models.User, perUser int) ([]models.Message, error) {
	if perUser <= 0 || len(users) == 0 {
		return nil, nil
	}
	messages := make([]models.Message, 0, len(users)*perUser)
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			messages = append(messages, models.Message{
				Text:      s.messageText(),
				UserID:    u.ID,
				Timestamp: s.pastTime(),
			})
		}
	}
	if err := s.db.CreateInBatches(&messages, 200).Error; err != nil {
		return nil, fmt.Errorf("create messages: %w", err)
	}
	return messages, nil
}

func (s *Seeder) messageText() string {
	text := []rune(s.faker.HipsterSentence(s.faker.Number(3, 12)))
	if len(text) > models.MaxMessageLength {
		text = text[:models.MaxMessageLength]
	}
	return string(text)
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.faker.Number(0, s.opts.MaxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

// SeedFollows gives each user up to perUser followees, never themselves.
func (s *Seeder) SeedFollows(users []models.User, perUser int) (int, error) {
	if perUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	var follows []models.Follow
	for i, u := range users {
		for _, j := range s.pick(len(users), perUser, i) {
			follows = append(follows, models.Follow{FollowerID: u.ID, FolloweeID: users[j].ID})
		}
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&follows, 500).Error; err != nil {
		return 0, fmt.Errorf("create follows: %w", err)
	}
	return len(follows), nil
}

// SeedLikes has each user like up to perUser messages written by others.
func (s *Seeder) SeedLikes(users []models.User, messages []models.Message, perUser int) (int, error) {
	if perUser <= 0 || len(messages) == 0 {
		return 0, nil
	}
	var likes []models.Like
	for _, u := range users {
		for _, j := range s.pick(len(messages), perUser, -1) {
			if messages[j].UserID == u.ID {
				continue
			}
			likes = append(likes, models.Like{UserID: u.ID, MessageID: messages[j].ID})
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&likes, 500).Error; err != nil {
		return 0, fmt.Errorf("create likes: %w", err)
	}
	return len(likes), nil
}

// pick returns up to k distinct indexes below n, skipping skip.
func (s *Seeder) pick(n, k, skip int) []int {
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != skip {
			idx = append(idx, i)
		}
	}
	s.faker.ShuffleInts(idx)
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
