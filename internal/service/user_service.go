package service

import (
	"context"
	"strings"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// ProfileMessageLimit caps the messages returned with a profile.
const ProfileMessageLimit = 100

// Profile is a user together with their counters and recent messages.
type Profile struct {
	User      *models.User     `json:"user"`
	Messages  []models.Message `json:"messages"`
	Counts    ProfileCounts    `json:"counts"`
	Following bool             `json:"following"`
	FollowsMe bool             `json:"follows_me"`
}

// ProfileCounts are the numbers shown on a profile header.
type ProfileCounts struct {
	Messages  int64 `json:"messages"`
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Likes     int64 `json:"likes"`
}

// UpdateProfileInput is the edit-profile form. CurrentPassword must match
// the stored hash for any change to be applied.
type UpdateProfileInput struct {
	UserID          uint   `json:"-" form:"-"`
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	ImageURL        string `json:"image_url" form:"image_url"`
	HeaderImageURL  string `json:"header_image_url" form:"header_image_url"`
	Bio             string `json:"bio" form:"bio"`
	Location        string `json:"location" form:"location"`
	CurrentPassword string `json:"password" form:"password"`
}

// UserService covers the social graph and account management.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
	auth        *AuthService
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	messageRepo repository.MessageRepository,
	likeRepo repository.LikeRepository,
	auth *AuthService,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		auth:        auth,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Search lists users whose username contains q.
func (s *UserService) Search(ctx context.Context, q string, limit, offset int) ([]models.User, error) {
	return s.userRepo.Search(ctx, strings.TrimSpace(q), limit, offset)
}

// IsFollowing reports whether the edge userID -> otherID exists.
func (s *UserService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, userID, otherID)
}

// IsFollowedBy reports whether the edge otherID -> userID exists.
func (s *UserService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, otherID, userID)
}

// Follow adds the edge followerID -> followeeID. Following someone twice
// is a no-op; following yourself is rejected.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID uint) error {
	ctx, span := observability.StartSpan(ctx, "UserService.Follow")
	defer span.End()

	if followerID == followeeID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	created, err := s.followRepo.Create(ctx, followerID, followeeID)
	if err != nil {
		span.SetError(err)
		return err
	}
	if created {
		observability.FollowEventsTotal.WithLabelValues("follow").Inc()
	}
	return nil
}

// Unfollow removes the edge; a missing edge is not an error.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	removed, err := s.followRepo.Delete(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if removed {
		observability.FollowEventsTotal.WithLabelValues("unfollow").Inc()
	}
	return nil
}

// Followers returns the user and everyone following them.
func (s *UserService) Followers(ctx context.Context, userID uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.followRepo.Followers(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, users, nil
}

// Following returns the user and everyone they follow.
func (s *UserService) Following(ctx context.Context, userID uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.followRepo.Following(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, users, nil
}

// GetProfile loads a profile as seen by viewerID (zero for anonymous).
func (s *UserService) GetProfile(ctx context.Context, id, viewerID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messageRepo.ListByUser(ctx, id, ProfileMessageLimit)
	if err != nil {
		return nil, err
	}
	msgCount, err := s.messageRepo.CountByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	follows, err := s.followRepo.Counts(ctx, id)
	if err != nil {
		return nil, err
	}
	likes, err := s.likeRepo.CountByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		User:     user,
		Messages: msgs,
		Counts: ProfileCounts{
			Messages:  msgCount,
			Followers: follows.Followers,
			Following: follows.Following,
			Likes:     likes,
		},
	}

	if viewerID != 0 && viewerID != id {
		if p.Following, err = s.IsFollowing(ctx, viewerID, id); err != nil {
			return nil, err
		}
		if p.FollowsMe, err = s.IsFollowedBy(ctx, viewerID, id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// UpdateProfile re-checks the current password, then applies the edits.
// Blank username or email keep their old values; blank image URLs reset
// to the defaults.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	ok, err := s.auth.CheckPassword(ctx, in.UserID, in.CurrentPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid password")
	}

	fields := map[string]interface{}{}
	invalid := map[string]string{}

	if username := strings.TrimSpace(in.Username); username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			invalid["username"] = err.Error()
		}
		fields["username"] = username
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			invalid["email"] = err.Error()
		}
		fields["email"] = email
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if err := validation.ValidateImageURL(imageURL); err != nil {
		invalid["image_url"] = err.Error()
	}
	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}
	fields["image_url"] = imageURL

	headerURL := strings.TrimSpace(in.HeaderImageURL)
	if err := validation.ValidateImageURL(headerURL); err != nil {
		invalid["header_image_url"] = err.Error()
	}
	if headerURL == "" {
		headerURL = models.DefaultHeaderImageURL
	}
	fields["header_image_url"] = headerURL

	fields["bio"] = strings.TrimSpace(in.Bio)
	fields["location"] = strings.TrimSpace(in.Location)

	if len(invalid) > 0 {
		return nil, models.NewFieldValidationError(invalid)
	}

	if err := s.userRepo.UpdateFields(ctx, in.UserID, fields); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			username, _ := fields["username"].(string)
			email, _ := fields["email"].(string)
			return nil, takenFields(ctx, s.userRepo, in.UserID, username, email, err)
		}
		return nil, err
	}
	return s.userRepo.GetByID(ctx, in.UserID)
}

// DeleteUser removes the account with its messages, likes and follow edges.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.userRepo.Delete(ctx, id)
}
