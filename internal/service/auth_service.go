// Package service implements the application's business operations on top
// of the repositories.
package service

import (
	"context"
	"strings"
	"sync"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const fieldRequired = "This field is required."

// SignupInput carries the fields of the signup form.
type SignupInput struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	ImageURL string `json:"image_url" form:"image_url"`
}

func (in SignupInput) normalized() SignupInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return in
}

// NewUserRecord hashes the password and returns an unsaved user. Username,
// email and password are required; an empty image URL gets the default.
// Uniqueness is left to the store. A cost of zero uses bcrypt.DefaultCost.
func NewUserRecord(in SignupInput, cost int) (*models.User, error) {
	if fields := requiredSignupFields(in); len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	imageURL := in.ImageURL
	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}

	return &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       string(hashed),
		ImageURL:       imageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}, nil
}

func requiredSignupFields(in SignupInput) map[string]string {
	fields := map[string]string{}
	if in.Username == "" {
		fields["username"] = fieldRequired
	}
	if in.Email == "" {
		fields["email"] = fieldRequired
	}
	if in.Password == "" {
		fields["password"] = fieldRequired
	}
	return fields
}

func formatSignupFields(in SignupInput) map[string]string {
	fields := map[string]string{}
	if err := validation.ValidateUsername(in.Username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		fields["image_url"] = err.Error()
	}
	return fields
}

// AuthService owns signup and credential checks.
type AuthService struct {
	userRepo repository.UserRepository
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates an AuthService hashing with the given bcrypt cost.
func NewAuthService(userRepo repository.UserRepository, cost int) *AuthService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{userRepo: userRepo, cost: cost}
}

// Signup validates the input, creates the user and returns it.
// A username or email that is already taken yields a CONFLICT error
// listing every taken field.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Signup")
	defer span.End()

	in = in.normalized()
	if fields := requiredSignupFields(in); len(fields) > 0 {
		observability.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, models.NewFieldValidationError(fields)
	}
	if fields := formatSignupFields(in); len(fields) > 0 {
		observability.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, models.NewFieldValidationError(fields)
	}

	user, err := NewUserRecord(in, s.cost)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			observability.SignupsTotal.WithLabelValues("conflict").Inc()
			return nil, s.conflictFields(ctx, in, err)
		}
		observability.SignupsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return nil, err
	}

	observability.SignupsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// conflictFields names each taken field. The store only reports the first
// violated index, so both keys are looked up.
func (s *AuthService) conflictFields(ctx context.Context, in SignupInput, cause error) error {
	return takenFields(ctx, s.userRepo, 0, in.Username, in.Email, cause)
}

// takenFields looks up which of username and email already belong to a
// user other than selfID. Empty values are skipped. When nothing is found
// cause is returned unchanged.
func takenFields(ctx context.Context, repo repository.UserRepository, selfID uint, username, email string, cause error) error {
	fields := map[string]string{}
	if username != "" {
		if u, err := repo.GetByUsername(ctx, username); err == nil && u != nil && u.ID != selfID {
			fields["username"] = "Username already taken"
		}
	}
	if email != "" {
		if u, err := repo.GetByEmail(ctx, email); err == nil && u != nil && u.ID != selfID {
			fields["email"] = "Email already taken"
		}
	}
	if len(fields) == 0 {
		return cause
	}
	appErr := models.NewConflictError("Username or email already taken", fields)
	appErr.Err = cause
	return appErr
}

// Authenticate checks username and password. It returns (user, true, nil)
// on a match and (nil, false, nil) for an unknown user or a wrong password.
// Errors are reserved for store failures. The username is trimmed the same
// way Signup trims it.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, bool, error) {
	username = strings.TrimSpace(username)
	ctx, span := observability.StartSpan(ctx, "AuthService.Authenticate",
		attribute.String("user.username", username))
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		span.SetError(err)
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}

	if user == nil {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, false, nil
	}

	observability.LoginsTotal.WithLabelValues("success").Inc()
	return user, true, nil
}

// CheckPassword reports whether password matches the stored hash of userID.
func (s *AuthService) CheckPassword(ctx context.Context, userID uint, password string) (bool, error) {
	cached, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	// The cached copy has no hash; reload by username.
	_, ok, err := s.Authenticate(ctx, cached.Username, password)
	return ok, err
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("warbler-timing-equalizer"), s.cost)
	})
	return s.dummyHash
}
