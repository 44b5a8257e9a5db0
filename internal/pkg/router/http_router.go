package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/app/controllers"
	"github.com/taskpilot/taskpilot/internal/pkg/middleware"
	"github.com/taskpilot/taskpilot/internal/pkg/oauth"
	"github.com/taskpilot/taskpilot/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)
	app.Use(middleware.TrackViewMiddleware)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	// Billing provider webhooks (no session auth, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandlePaymentWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
