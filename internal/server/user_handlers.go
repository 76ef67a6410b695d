package server

import (
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users
// @Summary List users
// @Description List users, optionally filtered by a username substring
// @Tags users
// @Produce json
// @Param q query string false "Username search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{view=string,users=[]models.User}
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.userService.Search(c.UserContext(), c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "users/index", fiber.Map{"users": users})
}

// ShowUser handles GET /users/:id
// @Summary User profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,profile=service.Profile}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var viewerID uint
	if user := currentUser(c); user != nil {
		viewerID = user.ID
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id, viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "users/show", fiber.Map{"profile": profile})
}

// ShowFollowing handles GET /users/:id/following
// @Summary Users followed by a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,users=[]models.User}
// @Failure 302 "Redirect to / when logged out"
// @Router /users/{id}/following [get]
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, users, err := s.userService.Following(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "users/following", fiber.Map{"user": user, "users": users})
}

// ShowFollowers handles GET /users/:id/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,users=[]models.User}
// @Failure 302 "Redirect to / when logged out"
// @Router /users/{id}/followers [get]
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, users, err := s.userService.Followers(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "users/followers", fiber.Map{"user": user, "users": users})
}

// ShowLikes handles GET /users/:id/likes
// @Summary Messages liked by a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,messages=[]models.Message}
// @Router /users/{id}/likes [get]
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	user, err := s.userService.GetUserByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	messages, err := s.messageService.LikedMessages(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "users/likes", fiber.Map{"user": user, "messages": messages})
}

// FollowUser handles POST /users/follow/:id
// @Summary Follow a user
// @Tags users
// @Produce json
// @Param id path int true "User ID to follow"
// @Success 200 {object} object{following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Follow(c.UserContext(), currentUser(c).ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": true, "user_id": id})
}

// StopFollowing handles POST /users/stop-following/:id
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Param id path int true "User ID to unfollow"
// @Success 200 {object} object{following=bool}
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Unfollow(c.UserContext(), currentUser(c).ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": false, "user_id": id})
}

// EditProfileForm handles GET /users/profile
// @Summary Edit profile form
// @Tags users
// @Produce json
// @Success 200 {object} object{view=string,user=models.User}
// @Router /users/profile [get]
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/edit", fiber.Map{"user": currentUser(c)})
}

// UpdateProfile handles POST /users/profile
// @Summary Update profile
// @Description Apply profile edits after re-checking the current password
// @Tags users
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body service.UpdateProfileInput true "Profile edits"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.UserID = currentUser(c).ID

	user, err := s.userService.UpdateProfile(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteAccount handles POST /users/delete
// @Summary Delete account
// @Description Delete the current user with their messages, likes and follows
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /users/delete [post]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	user := currentUser(c)
	if err := s.doLogout(c); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	if err := s.userService.DeleteUser(c.UserContext(), user.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted."})
}
