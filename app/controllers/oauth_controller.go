package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/internal/pkg/database"
)

// HandleOAuthLogin starts the provider flow.
func HandleOAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthLogout clears the provider session alongside the app session.
func HandleOAuthLogout(c *fiber.Ctx) error {
	_ = gothfiber.Logout(c)
	return HandleLogout(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", fmt.Sprintf("OAuth failed: %v", err))
	}

	db := database.GetDB()

	var pa models.ProviderAccount
	res := db.Where("provider = ? AND provider_user_id = ?", u.Provider, u.UserID).First(&pa)

	var appUser models.User
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		// Optional email match if provided
		if u.Email != "" {
			_ = db.Where("email = ?", u.Email).First(&appUser).Error
		}
		if appUser.ID == 0 {
			// Password is a random placeholder, OAuth users never log in with it
			placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
			hash, _ := models.HashPassword(placeholder)
			email := u.Email
			if email == "" {
				// Unique, non-empty email to satisfy the unique index
				email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
			}
			appUser = models.User{
				Name:     firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
				Email:    email,
				Password: hash,
				Role:     models.ROLE_USER,
				Status:   models.STATUS_ACTIVE,
				Credits:  models.DefaultSignupCredits,
			}
			if err := db.Create(&appUser).Error; err != nil {
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create user")
			}
		}
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		pa = models.ProviderAccount{
			UserID:         appUser.ID,
			Provider:       u.Provider,
			ProviderUserID: u.UserID,
			AccessToken:    u.AccessToken,
			RefreshToken:   u.RefreshToken,
			ExpiresAt:      exp,
		}
		if err := db.Create(&pa).Error; err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to link provider")
		}
	} else if res.Error == nil {
		pa.AccessToken = u.AccessToken
		pa.RefreshToken = u.RefreshToken
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			pa.ExpiresAt = &t
		} else {
			pa.ExpiresAt = nil
		}
		if err := db.Save(&pa).Error; err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update provider tokens")
		}
		if err := db.First(&appUser, pa.UserID).Error; err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Linked user not found")
		}
	} else {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Database error")
	}

	if err := loginUserSession(c, &appUser); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to open session")
	}

	_ = db.Model(&appUser).UpdateColumn("last_login_at", time.Now()).Error

	return c.Redirect("/", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
