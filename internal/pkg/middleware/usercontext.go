package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/pkg/session"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

func anonymous(c *fiber.Ctx) {
	c.Locals("USER_CONTEXT", usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.AuthKey, false)
	c.Locals(usercontext.KeyIsAdmin, false)
}

// UserContextMiddleware resolves the session into a UserContext for every
// request so handlers never touch the session store directly.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth keeps its own fiber session store for the OAuth dance; our app
	// session must not touch those routes.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		anonymous(c)
		return c.Next()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		anonymous(c)
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
	}
	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.AuthKey, true)
	c.Locals(usercontext.KeyUserID, userCtx.UserID)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}
