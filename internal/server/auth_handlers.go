package server

import (
	"fmt"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Homepage handles GET /
// @Summary Home page
// @Description Anonymous visitors get the landing view; logged-in users get their timeline
// @Tags pages
// @Produce json
// @Success 200 {object} object{view=string,messages=[]models.Message,liked_ids=[]int}
// @Router / [get]
func (s *Server) Homepage(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return s.render(c, fiber.StatusOK, "home-anon", nil)
	}

	ctx := c.UserContext()
	messages, err := s.messageService.Timeline(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	likedIDs, err := s.messageService.LikedMessageIDs(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "home", fiber.Map{
		"messages":  messages,
		"liked_ids": likedIDs,
	})
}

// SignupForm handles GET /signup. A logged-in visitor is logged out first.
// @Summary Signup form
// @Tags auth
// @Produce json
// @Success 200 {object} object{view=string}
// @Router /signup [get]
func (s *Server) SignupForm(c *fiber.Ctx) error {
	if err := s.logoutIfLoggedIn(c); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return s.render(c, fiber.StatusOK, "signup", nil)
}

// Signup handles POST /signup
// @Summary User signup
// @Description Register a new account, log it in and return a bearer token
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	if err := s.logoutIfLoggedIn(c); err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	var req service.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.loginWithToken(c, user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// LoginForm handles GET /login
// @Summary Login form
// @Tags auth
// @Produce json
// @Success 200 {object} object{view=string}
// @Router /login [get]
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "login", nil)
}

// Login handles POST /login
// @Summary User login
// @Description Authenticate by username and password, start a session and return a bearer token
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User,message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, ok, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials."))
	}

	token, err := s.loginWithToken(c, user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"user":    user,
		"message": fmt.Sprintf("Hello, %s!", user.Username),
	})
}

// Logout handles POST /logout
// @Summary Logout
// @Description Clear the session and revoke the presented bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := tokenClaims(c); claims != nil {
		if err := s.tokenService.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
				slog.String("jti", claims.ID), slog.String("error", err.Error()))
		}
	}
	if err := s.doLogout(c); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "You have successfully logged out."})
}

func (s *Server) logoutIfLoggedIn(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return nil
	}
	return s.doLogout(c)
}

// loginWithToken starts a session for user and issues a bearer token.
func (s *Server) loginWithToken(c *fiber.Ctx, user *models.User) (string, error) {
	if err := s.doLogin(c, user); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	token, err := s.tokenService.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
