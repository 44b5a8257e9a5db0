package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/jobqueue"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

// userFilterFromQuery builds the admin user filter from query parameters.
// status is a comma-separated list of subscription statuses; the value
// "none" selects users without any subscription history.
func userFilterFromQuery(c *fiber.Ctx) repository.UserFilter {
	filter := repository.UserFilter{
		EmailContains: strings.TrimSpace(c.Query("email")),
	}

	for _, status := range strings.Split(c.Query("status"), ",") {
		status = strings.TrimSpace(status)
		switch status {
		case "":
		case "none":
			filter.StatusNone = true
		default:
			filter.SubscriptionStatuses = append(filter.SubscriptionStatuses, status)
		}
	}

	switch c.Query("is_admin") {
	case "true":
		t := true
		filter.IsAdmin = &t
	case "false":
		f := false
		filter.IsAdmin = &f
	}

	return filter
}

func adminUserResponse(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                  u.ID,
		"name":                u.Name,
		"email":               u.Email,
		"is_admin":            u.Role == models.ROLE_ADMIN,
		"status":              u.Status,
		"subscription_status": u.SubscriptionStatus,
		"subscription_plan":   u.SubscriptionPlan,
		"credits":             u.Credits,
		"date_paid":           formatTimePtr(u.DatePaid),
		"last_login_at":       formatTimePtr(u.LastLoginAt),
		"created_at":          u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleAdminListUsers returns a paginated, filterable user listing.
func HandleAdminListUsers(c *fiber.Ctx) error {
	filter := userFilterFromQuery(c)
	offset, limit := parsePagination(c, 25, 100)

	repos := repository.GetGlobalRepositories()
	users, err := repos.User.List(filter, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load users")
	}
	total, err := repos.User.Count(filter)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count users")
	}

	items := make([]fiber.Map, 0, len(users))
	for i := range users {
		items = append(items, adminUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{
		"users": items,
		"total": total,
	})
}

type updateUserRoleRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

// HandleAdminUpdateUser changes a user's admin flag. Admins cannot demote
// themselves; that would lock the dashboard.
func HandleAdminUpdateUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid user id")
	}

	var req updateUserRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.IsAdmin == nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "is_admin is required")
	}

	if id == usercontext.GetUserID(c) && !*req.IsAdmin {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "You cannot remove your own admin role")
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	role := models.ROLE_USER
	if *req.IsAdmin {
		role = models.ROLE_ADMIN
	}
	if err := repos.User.SetRole(user.ID, role); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update user")
	}

	user.Role = role
	return c.JSON(adminUserResponse(user))
}

// HandleAdminStats returns the latest aggregated daily metrics with traffic
// source attribution and an optional history range via the days parameter.
func HandleAdminStats(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()

	latest, err := repos.Stats.GetLatest()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"stats": nil, "sources": []fiber.Map{}, "history": []fiber.Map{}})
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load stats")
	}

	sources, err := repos.Stats.GetViewSources(latest.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load view sources")
	}

	days := c.QueryInt("days", 7)
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}
	end := time.Now().UTC()
	history, err := repos.Stats.GetRange(end.AddDate(0, 0, -days), end)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load stats history")
	}

	return c.JSON(fiber.Map{
		"stats":   latest,
		"sources": sources,
		"history": history,
	})
}

func contactMessageResponse(m *models.ContactMessage) fiber.Map {
	return fiber.Map{
		"id":         m.ID,
		"user_id":    m.UserID,
		"content":    m.Content,
		"is_read":    m.IsRead,
		"replied_at": formatTimePtr(m.RepliedAt),
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleAdminListContactMessages returns contact form entries, newest first.
func HandleAdminListContactMessages(c *fiber.Ctx) error {
	offset, limit := parsePagination(c, 25, 100)

	repos := repository.GetGlobalRepositories()
	messages, err := repos.Contact.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load messages")
	}
	total, err := repos.Contact.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count messages")
	}

	items := make([]fiber.Map, 0, len(messages))
	for i := range messages {
		items = append(items, contactMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{
		"messages": items,
		"total":    total,
	})
}

type updateContactMessageRequest struct {
	IsRead  *bool `json:"is_read"`
	Replied *bool `json:"replied"`
}

// HandleAdminUpdateContactMessage marks a message read and/or replied.
func HandleAdminUpdateContactMessage(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid message id")
	}

	var req updateContactMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.Contact.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Message not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load message")
	}

	if req.IsRead != nil && *req.IsRead {
		if err := repos.Contact.MarkRead(id); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update message")
		}
	}
	if req.Replied != nil && *req.Replied {
		if err := repos.Contact.MarkReplied(id); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update message")
		}
	}

	message, err := repos.Contact.GetByID(id)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load message")
	}
	return c.JSON(contactMessageResponse(message))
}

// HandleAdminQueueStats reports background job counts and queue depths.
func HandleAdminQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()

	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		log.Errorf("failed to read job stats: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load queue stats")
	}
	pending, err := queue.GetQueueSize(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load queue size")
	}
	processing, err := queue.GetProcessingSize(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load queue size")
	}

	return c.JSON(fiber.Map{
		"jobs":            stats,
		"pending_size":    pending,
		"processing_size": processing,
	})
}
