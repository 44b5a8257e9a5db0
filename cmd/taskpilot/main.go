package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/taskpilot/taskpilot/app/controllers"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/analytics"
	"github.com/taskpilot/taskpilot/internal/pkg/cache"
	"github.com/taskpilot/taskpilot/internal/pkg/database"
	"github.com/taskpilot/taskpilot/internal/pkg/env"
	"github.com/taskpilot/taskpilot/internal/pkg/jobqueue"
	"github.com/taskpilot/taskpilot/internal/pkg/payment"
	"github.com/taskpilot/taskpilot/internal/pkg/router"
	"github.com/taskpilot/taskpilot/internal/pkg/scheduler"
	"github.com/taskpilot/taskpilot/internal/pkg/storage"
)

func main() {
	app := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		jobqueue.GetManager().Stop()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	// billing
	catalog, err := payment.LoadCatalogFromEnv()
	if err != nil {
		log.Fatalf("invalid plan catalog: %v", err)
	}
	gateway := payment.NewGatewayFromEnv()
	paymentRepo := payment.NewRepository(database.GetDB())
	controllers.Gateway = gateway
	controllers.PaymentCatalog = catalog
	controllers.PaymentRepo = paymentRepo
	controllers.PaymentService = payment.NewService(paymentRepo, catalog, gateway)

	// AI planner
	controllers.Planner = scheduler.NewPlanner(scheduler.NewOpenAIClientFromEnv())

	// S3 storage; the app runs without it, upload endpoints answer 503
	if cfg, err := storage.LoadConfig(); err != nil {
		log.Warnf("file storage disabled: %v", err)
	} else if client, err := storage.NewClient(cfg); err != nil {
		log.Warnf("file storage disabled: %v", err)
	} else {
		controllers.Storage = client
		jobqueue.SetStorageClient(client)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app)

	jobqueue.GetManager().Start()
	analytics.StartCron(repos)

	return app
}
