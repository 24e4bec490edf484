package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/cache"
	"github.com/causekit/CauseLedger/internal/pkg/database"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/causekit/CauseLedger/internal/pkg/router"
	"github.com/causekit/CauseLedger/internal/pkg/worker"
)

func main() {
	app := NewApplication()

	manager := worker.GetManager()
	manager.Start()
	defer manager.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, oversized webhook bodies get 413
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
