package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

type contactRequest struct {
	Content string `json:"content"`
}

// HandleCreateContactMessage stores a support message for the admin inbox.
func HandleCreateContactMessage(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" || len(content) > 5000 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "Content must be between 1 and 5000 characters")
	}

	message := &models.ContactMessage{
		UserID:  usercontext.GetUserID(c),
		Content: content,
	}
	if err := repository.GetGlobalFactory().GetContactRepository().Create(message); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store message")
	}

	return c.Status(fiber.StatusCreated).JSON(contactMessageResponse(message))
}
