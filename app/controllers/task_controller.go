package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/entitlements"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

type taskRequest struct {
	Description string `json:"description"`
	Time        string `json:"time"`
	IsDone      *bool  `json:"is_done"`
}

// HandleListTasks returns all tasks of the authenticated user.
func HandleListTasks(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tasks, err := repository.GetGlobalFactory().GetTaskRepository().GetByUserID(userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load tasks")
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// HandleCreateTask creates a task, enforcing the plan's task cap.
func HandleCreateTask(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Description) == "" {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "Description is required")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	repo := repository.GetGlobalFactory().GetTaskRepository()
	count, err := repo.CountByUserID(user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count tasks")
	}
	limits := entitlements.LimitsFor(user)
	if count >= int64(limits.MaxTasks) {
		return jsonError(c, fiber.StatusForbidden, "task_limit_reached", "Task limit for your plan reached")
	}

	task := &models.Task{
		UserID:      user.ID,
		Description: strings.TrimSpace(req.Description),
		Time:        req.Time,
	}
	if task.Time == "" {
		task.Time = "1"
	}
	if err := repo.Create(task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// ownTask loads a task and verifies ownership.
func ownTask(c *fiber.Ctx) (*models.Task, error) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid task id")
	}
	task, err := repository.GetGlobalFactory().GetTaskRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load task")
	}
	if task.UserID != usercontext.GetUserID(c) {
		// Hide foreign tasks entirely
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
	}
	return task, nil
}

// HandleUpdateTask updates description, time estimate or done state.
func HandleUpdateTask(c *fiber.Ctx) error {
	task, errResp := ownTask(c)
	if task == nil {
		return errResp
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Description) != "" {
		task.Description = strings.TrimSpace(req.Description)
	}
	if req.Time != "" {
		task.Time = req.Time
	}
	if req.IsDone != nil {
		task.IsDone = *req.IsDone
	}

	if err := repository.GetGlobalFactory().GetTaskRepository().Update(task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update task")
	}
	return c.JSON(task)
}

// HandleDeleteTask removes a task.
func HandleDeleteTask(c *fiber.Ctx) error {
	task, errResp := ownTask(c)
	if task == nil {
		return errResp
	}
	if err := repository.GetGlobalFactory().GetTaskRepository().Delete(task.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
