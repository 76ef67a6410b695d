package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUserContext(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CurrentUser(context.Background()))

	user := &models.User{ID: 7, Username: "u7"}
	ctx := WithCurrentUser(context.Background(), user)

	assert.Same(t, user, CurrentUser(ctx))
	assert.Equal(t, uint(7), ctx.Value(UserIDKey))
}

func TestSetAndClearCurrentUser(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		user := &models.User{ID: 3}
		SetCurrentUser(c, user)
		if CurrentUserFromCtx(c) != user || CurrentUser(c.UserContext()) != user {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		ClearCurrentUser(c)
		if CurrentUserFromCtx(c) != nil || CurrentUser(c.UserContext()) != nil {
			return c.SendStatus(fiber.StatusConflict)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"Happy Path", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"Missing Header", "", ""},
		{"Invalid Format", "Basic dXNlcjpwYXNz", ""},
		{"Too Many Parts", "Bearer a b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return c.SendString(BearerToken(c))
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}
