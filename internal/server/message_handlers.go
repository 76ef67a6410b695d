package server

import (
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// NewMessageForm handles GET /messages/new
// @Summary New message form
// @Tags messages
// @Produce json
// @Success 200 {object} object{view=string}
// @Failure 302 "Redirect to / when logged out"
// @Router /messages/new [get]
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "messages/new", nil)
}

// CreateMessage handles POST /messages/new
// @Summary Post a message
// @Tags messages
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{text=string} true "Message text (1-140 characters)"
// @Success 201 {object} models.Message
// @Failure 302 "Redirect to / when logged out"
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/new [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageService.Post(c.UserContext(), currentUser(c).ID, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ShowMessage handles GET /messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{view=string,message=models.Message,liked_by=[]models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.messageService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, "messages/show", fiber.Map{
		"message":  detail.Message,
		"liked_by": detail.LikedBy,
	})
}

// DeleteMessage handles POST /messages/:id/delete
// @Summary Delete a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/delete [post]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.Delete(c.UserContext(), currentUser(c).ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted."})
}

// ToggleLike handles POST /messages/:id/like
// @Summary Like or unlike a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	liked, err := s.messageService.ToggleLike(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked, "message_id": id})
}
