package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/entitlements"
	"github.com/taskpilot/taskpilot/internal/pkg/scheduler"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

// Planner is the process-wide AI planner, injected at startup.
var Planner *scheduler.Planner

type generateScheduleRequest struct {
	Hours float64 `json:"hours"`
}

// HandleGenerateSchedule runs the AI planner over the user's open tasks.
// Unsubscribed users spend one credit per generation; without subscription
// or credits the request fails with 402.
func HandleGenerateSchedule(c *fiber.Ctx) error {
	if Planner == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "planner_unavailable", "AI planner is not configured")
	}

	var req generateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.Hours <= 0 || req.Hours > 24 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "Hours must be between 0 and 24")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if !entitlements.CanGenerate(user) {
		return jsonError(c, fiber.StatusPaymentRequired, "payment_required", "No active subscription and no credits left")
	}

	repos := repository.GetGlobalRepositories()

	// Per-plan daily generation cap, counted over the current UTC day.
	limits := entitlements.LimitsFor(user)
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	generated, err := repos.Schedule.CountByUserIDSince(user.ID, dayStart)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check generation limit")
	}
	if generated >= int64(limits.DailyGenerations) {
		return jsonError(c, fiber.StatusTooManyRequests, "daily_limit_reached", "Daily generation limit reached")
	}

	tasks, err := repos.Task.GetByUserID(user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load tasks")
	}

	plan, raw, err := Planner.GenerateDaySchedule(c.Context(), tasks, req.Hours)
	if err != nil {
		log.Errorf("schedule generation failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "generation_failed", "Schedule generation failed, no credit was spent")
	}

	schedule := &models.Schedule{UserID: user.ID, Content: raw}
	if err := repos.Schedule.Create(schedule); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store schedule")
	}

	// Credits are only spent on a successful generation.
	if entitlements.ConsumesCredit(user) {
		if err := repos.User.DecrementCredits(user.ID); err != nil {
			log.Errorf("failed to decrement credits for user %d: %v", user.ID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         schedule.ID,
		"created_at": schedule.CreatedAt.UTC().Format(time.RFC3339),
		"schedule":   plan,
	})
}

func scheduleResponse(s *models.Schedule) fiber.Map {
	var content json.RawMessage
	if json.Valid([]byte(s.Content)) {
		content = json.RawMessage(s.Content)
	}
	return fiber.Map{
		"id":         s.ID,
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
		"schedule":   content,
	}
}

// HandleGetLatestSchedule returns the user's most recent generated plan.
func HandleGetLatestSchedule(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	schedule, err := repository.GetGlobalFactory().GetScheduleRepository().GetLatestByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No schedule generated yet")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load schedule")
	}
	return c.JSON(scheduleResponse(schedule))
}

// HandleListSchedules returns the user's generation history.
func HandleListSchedules(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	offset, limit := parsePagination(c, 20, 100)

	schedules, err := repository.GetGlobalFactory().GetScheduleRepository().GetByUserID(userID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load schedules")
	}

	items := make([]fiber.Map, 0, len(schedules))
	for i := range schedules {
		items = append(items, scheduleResponse(&schedules[i]))
	}
	return c.JSON(fiber.Map{"schedules": items})
}
