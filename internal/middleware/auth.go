package middleware

import (
	"context"
	"strings"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type currentUserKey struct{}

// LocalsCurrentUser is the Fiber locals key holding the authenticated *models.User.
const LocalsCurrentUser = "currentUser"

// WithCurrentUser returns a context carrying the authenticated user and its ID.
func WithCurrentUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, currentUserKey{}, user)
	return context.WithValue(ctx, UserIDKey, user.ID)
}

// CurrentUser returns the authenticated user stored in ctx, or nil.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(currentUserKey{}).(*models.User)
	return user
}

// SetCurrentUser stores the user both in Fiber locals and in the request context,
// so handlers and deeper service layers see the same identity.
func SetCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(LocalsCurrentUser, user)
	c.Locals("userID", user.ID)
	c.SetUserContext(WithCurrentUser(c.UserContext(), user))
}

// ClearCurrentUser forgets the identity for the rest of the request.
func ClearCurrentUser(c *fiber.Ctx) {
	c.Locals(LocalsCurrentUser, nil)
	c.Locals("userID", nil)
	ctx := context.WithValue(c.UserContext(), currentUserKey{}, (*models.User)(nil))
	c.SetUserContext(context.WithValue(ctx, UserIDKey, nil))
}

// CurrentUserFromCtx returns the authenticated user for this request, or nil.
func CurrentUserFromCtx(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsCurrentUser).(*models.User)
	return user
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
