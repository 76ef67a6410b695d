package server

import (
	"log/slog"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
)

const (
	// sessionUserKey holds the logged-in user's ID in the session.
	sessionUserKey = "curr_user"
	// sessionFlashKey holds one pending flash message.
	sessionFlashKey = "flash"

	sessionCookieName = "warbler_session"
	localsSession     = "session"
	localsToken       = "tokenClaims"

	msgAccessUnauthorized = "Access unauthorized."
)

func newSessionStore(cfg *config.Config, rdb *redis.Client) *session.Store {
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	sc := session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:" + sessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		CookieSameSite: "Lax",
	}
	if rdb != nil {
		sc.Storage = cache.NewSessionStorage(rdb)
	}
	return session.New(sc)
}

// session returns this request's session, loading it once per request.
func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	if sess, ok := c.Locals(localsSession).(*session.Session); ok {
		return sess, nil
	}
	sess, err := s.sessions.Get(c)
	if err != nil {
		return nil, err
	}
	c.Locals(localsSession, sess)
	return sess, nil
}

// saveSession persists sess. fiber releases a session on Save, so the
// cached copy is dropped and the next access loads it again.
func (s *Server) saveSession(c *fiber.Ctx, sess *session.Session) error {
	c.Locals(localsSession, nil)
	return sess.Save()
}

// doLogin records user as logged in, rotating the session ID first.
func (s *Server) doLogin(c *fiber.Ctx, user *models.User) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(sessionUserKey, user.ID)
	if err := s.saveSession(c, sess); err != nil {
		return err
	}
	middleware.SetCurrentUser(c, user)
	return nil
}

// doLogout forgets the logged-in user for the session and this request.
func (s *Server) doLogout(c *fiber.Ctx) error {
	middleware.ClearCurrentUser(c)
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if sess.Get(sessionUserKey) == nil {
		return nil
	}
	sess.Delete(sessionUserKey)
	return s.saveSession(c, sess)
}

// flash stores a one-shot message shown on the next view.
func (s *Server) flash(c *fiber.Ctx, msg string) {
	sess, err := s.session(c)
	if err != nil {
		return
	}
	sess.Set(sessionFlashKey, msg)
	if err := s.saveSession(c, sess); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to save flash", slog.String("error", err.Error()))
	}
}

// popFlash returns and clears the pending flash message.
func (s *Server) popFlash(c *fiber.Ctx) string {
	sess, err := s.session(c)
	if err != nil {
		return ""
	}
	msg, _ := sess.Get(sessionFlashKey).(string)
	if msg != "" {
		sess.Delete(sessionFlashKey)
		_ = s.saveSession(c, sess)
	}
	return msg
}

// LoadCurrentUser resolves the session key, or failing that a bearer token,
// into the current user for this request. Stale keys are dropped.
func (s *Server) LoadCurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if sess, err := s.session(c); err == nil {
			if id, ok := sess.Get(sessionUserKey).(uint); ok {
				user, err := s.userService.GetUserByID(ctx, id)
				switch {
				case err == nil:
					middleware.SetCurrentUser(c, user)
					return c.Next()
				case models.HasCode(err, models.CodeNotFound):
					sess.Delete(sessionUserKey)
					_ = s.saveSession(c, sess)
				default:
					middleware.Logger.WarnContext(ctx, "failed to load session user", slog.String("error", err.Error()))
				}
			}
		}

		if token := middleware.BearerToken(c); token != "" {
			claims, err := s.tokenService.Parse(ctx, token)
			if err == nil {
				if user, err := s.userService.GetUserByID(ctx, claims.UserID); err == nil {
					c.Locals(localsToken, claims)
					middleware.SetCurrentUser(c, user)
				}
			}
		}

		return c.Next()
	}
}

// LoginRequired sends anonymous requests back to the home page with an
// "Access unauthorized." flash.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.CurrentUserFromCtx(c) != nil {
			return c.Next()
		}
		s.flash(c, msgAccessUnauthorized)
		return c.Redirect("/", fiber.StatusFound)
	}
}

// RequireUser rejects anonymous requests with 401 instead of redirecting.
// It guards endpoints that browsers do not navigate to, such as sockets.
func (s *Server) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.CurrentUserFromCtx(c) == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(msgAccessUnauthorized))
		}
		return c.Next()
	}
}

// currentUser returns the logged-in user. Routes behind LoginRequired
// always have one.
func currentUser(c *fiber.Ctx) *models.User {
	return middleware.CurrentUserFromCtx(c)
}

func tokenClaims(c *fiber.Ctx) *service.TokenClaims {
	claims, _ := c.Locals(localsToken).(*service.TokenClaims)
	return claims
}
