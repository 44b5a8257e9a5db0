package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

// Session keys shared with the user-context middleware.
const (
	AUTH_KEY      string = usercontext.AuthKey
	USER_ID       string = usercontext.KeyUserID
	USER_NAME     string = usercontext.KeyUsername
	USER_IS_ADMIN string = usercontext.KeyIsAdmin
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// currentUser loads the authenticated user's row. 401 semantics are handled
// by the middleware; this resolves the record behind the session.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return nil, gorm.ErrRecordNotFound
	}
	return repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func parsePagination(c *fiber.Ctx, defaultLimit, maxLimit int) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return (page - 1) * limit, limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func strPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
