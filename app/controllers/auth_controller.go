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
	"github.com/taskpilot/taskpilot/internal/pkg/env"
	"github.com/taskpilot/taskpilot/internal/pkg/jobqueue"
	"github.com/taskpilot/taskpilot/internal/pkg/mail"
	"github.com/taskpilot/taskpilot/internal/pkg/session"
	"github.com/taskpilot/taskpilot/internal/pkg/utils"
)

const resetTokenTTL = 2 * time.Hour

func appBaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an inactive account and queues the activation mail.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check email")
	}

	now := time.Now()
	user.ActivationSentAt = &now
	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	subject, body := mail.ActivationMail(appBaseURL(), user.ActivationToken)
	if _, err := jobqueue.GetManager().EnqueueSendMail(user.Email, subject, body); err != nil {
		log.Errorf("failed to enqueue activation mail for %s: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"email":   user.Email,
		"message": "Account created, please confirm your email address",
	})
}

// HandleVerifyEmail activates an account via its activation token.
func HandleVerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		req.Token = c.Query("token")
	}
	if strings.TrimSpace(req.Token) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Activation token is required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByActivationToken(req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Unknown activation token")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to verify email")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to activate account")
	}

	return c.JSON(fiber.Map{"message": "Email confirmed, you can log in now"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and opens a session. Login failures stay
// deliberately vague.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !models.CheckPasswordHash(req.Password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if user.Status != models.STATUS_ACTIVE {
		return jsonError(c, fiber.StatusForbidden, "inactive_account", "Please confirm your email address first")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to open session")
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save session")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Warnf("failed to stamp last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleLogout destroys the session.
func HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to destroy session")
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleMe returns the authenticated user's account including billing state.
func HandleMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	return c.JSON(fiber.Map{
		"id":                  user.ID,
		"username":            user.Name,
		"email":               user.Email,
		"is_admin":            user.Role == models.ROLE_ADMIN,
		"avatar_url":          utils.GetGravatarURL(user.Email, 200),
		"credits":             user.Credits,
		"subscription_plan":   user.SubscriptionPlan,
		"subscription_status": user.SubscriptionStatus,
		"is_subscribed":       user.IsSubscribed(),
		"date_paid":           formatTimePtr(user.DatePaid),
		"created_at":          user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":       formatTimePtr(user.LastLoginAt),
	})
}

// HandleRequestPasswordReset issues a reset token. The response is identical
// whether or not the email exists.
func HandleRequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Email is required")
	}

	neutral := fiber.Map{"message": "If the address exists, a reset mail has been sent"}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		return c.JSON(neutral)
	}

	token, err := models.GenerateToken()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create reset token")
	}
	now := time.Now()
	user.ResetToken = token
	user.ResetSentAt = &now
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store reset token")
	}

	subject, body := mail.PasswordResetMail(appBaseURL(), token)
	if _, err := jobqueue.GetManager().EnqueueSendMail(user.Email, subject, body); err != nil {
		log.Errorf("failed to enqueue reset mail for %s: %v", user.Email, err)
	}

	return c.JSON(neutral)
}

// HandleResetPassword sets a new password for a valid, unexpired reset token.
func HandleResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Token) == "" || len(req.Password) < 6 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "Token and a password of at least 6 characters are required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByResetToken(req.Token)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Unknown or expired reset token")
	}
	if user.ResetSentAt == nil || time.Since(*user.ResetSentAt) > resetTokenTTL {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Unknown or expired reset token")
	}

	hashed, err := models.HashPassword(req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to hash password")
	}
	user.Password = hashed
	user.ResetToken = ""
	user.ResetSentAt = nil
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update password")
	}

	return c.JSON(fiber.Map{"message": "Password updated, you can log in now"})
}

// loginUserSession opens a session for an OAuth-authenticated user.
func loginUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	return sess.Save()
}
