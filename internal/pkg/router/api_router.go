package router

import (
	"net"
	"strconv"
	"time"

	"github.com/causekit/CauseLedger/app/controllers"
	"github.com/causekit/CauseLedger/internal/pkg/cache"
	"github.com/causekit/CauseLedger/internal/pkg/constants"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/causekit/CauseLedger/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"
)

type ApiRouter struct {
}

// InstallRouter mounts the read-only monitoring surface behind the service
// token and a Redis-backed request limiter, so the limiter state is shared
// across replicas like the ingestion counters are.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.MonitoringRoute,
		limiter.New(limiter.Config{
			Max:        60,
			Expiration: time.Minute,
			Storage:    newLimiterStorage(),
		}),
		middleware.ServiceKeyAuthMiddleware(),
	)

	api.Get("/failed-events", controllers.HandleFailedEvents)
	api.Get("/events/:id/payload", controllers.HandleEventPayload)
	api.Get("/security-alerts", controllers.HandleSecurityAlerts)
	api.Get("/duplicate-flags", controllers.HandleDuplicateFlags)
	api.Post("/reconcile-scan", controllers.HandleReconcileScan)
	api.Get("/stats", controllers.HandleIngestStats)
}

// newLimiterStorage reuses the shared Redis instance for the fiber limiter,
// on a separate database from the cache keys.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // Separate database for limiter state (cache uses DB 0)
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
