package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/taskpilot/taskpilot/app/controllers"
	"github.com/taskpilot/taskpilot/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
	}))

	v1 := api.Group("/v1")

	// Account
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/verify-email", controllers.HandleVerifyEmail)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", middleware.RequireAuth, controllers.HandleLogout)
	v1.Get("/auth/me", middleware.RequireAuth, controllers.HandleMe)
	v1.Post("/auth/password-reset/request", controllers.HandleRequestPasswordReset)
	v1.Post("/auth/password-reset", controllers.HandleResetPassword)

	// Tasks
	tasks := v1.Group("/tasks", middleware.RequireAuth)
	tasks.Get("/", controllers.HandleListTasks)
	tasks.Post("/", controllers.HandleCreateTask)
	tasks.Patch("/:id", controllers.HandleUpdateTask)
	tasks.Delete("/:id", controllers.HandleDeleteTask)

	// AI day planner
	schedules := v1.Group("/schedules", middleware.RequireAuth)
	schedules.Get("/", controllers.HandleListSchedules)
	schedules.Get("/latest", controllers.HandleGetLatestSchedule)
	schedules.Post("/", controllers.HandleGenerateSchedule)

	// Files
	files := v1.Group("/files", middleware.RequireAuth)
	files.Get("/", controllers.HandleListFiles)
	files.Post("/upload-url", controllers.HandleCreateUploadURL)
	files.Post("/confirm", controllers.HandleConfirmUpload)
	files.Get("/:id/download-url", controllers.HandleGetDownloadURL)
	files.Delete("/:id", controllers.HandleDeleteFile)

	// Billing
	v1.Get("/billing/plans", controllers.HandleListPlans)
	billing := v1.Group("/billing", middleware.RequireAuth)
	billing.Post("/checkout", controllers.HandleCreateCheckoutSession)
	billing.Post("/portal", controllers.HandleCustomerPortal)

	// Contact
	v1.Post("/contact", middleware.RequireAuth, controllers.HandleCreateContactMessage)

	// Admin
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/users", controllers.HandleAdminListUsers)
	admin.Patch("/users/:id", controllers.HandleAdminUpdateUser)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/messages", controllers.HandleAdminListContactMessages)
	admin.Patch("/messages/:id", controllers.HandleAdminUpdateContactMessage)
	admin.Get("/queues", controllers.HandleAdminQueueStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
