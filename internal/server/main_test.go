package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "password"

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:         "test-secret-key-that-is-long-enough",
		Port:              "0",
		Env:               "test",
		AllowedOrigins:    "http://localhost:5000",
		SessionTTLMinutes: 60,
		BcryptCost:        bcrypt.MinCost,
	}
}

// newTestServer builds a Server on a fresh SQLite database. rdb may be nil.
func newTestServer(t *testing.T, rdb *redis.Client) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	s, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	t.Cleanup(s.shutdownFn)
	return s, db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// client sends requests to the app and carries the session cookie between
// them the way a browser would.
type client struct {
	t      *testing.T
	app    *fiber.App
	cookie string
	bearer string
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, app: s.App()}
}

func (c *client) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.cookie})
	}
	if c.bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.bearer)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })

	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookieName {
			c.cookie = ck.Value
		}
	}
	return resp
}

func (c *client) get(path string) *http.Response {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, body interface{}) *http.Response {
	return c.do(http.MethodPost, path, body)
}

// signup registers username through the API, leaving c logged in.
func (c *client) signup(username string) *models.User {
	c.t.Helper()
	resp := c.post("/signup", fiber.Map{
		"username": username,
		"email":    username + "@test.com",
		"password": testPassword,
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(c.t, resp, &out)
	require.NotEmpty(c.t, out.Token)
	return &out.User
}

// login authenticates through the API and returns the issued token.
func (c *client) login(username string) string {
	c.t.Helper()
	resp := c.post("/login", fiber.Map{"username": username, "password": testPassword})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	decode(c.t, resp, &out)
	return out.Token
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	decode(t, resp, &out)
	return out
}
