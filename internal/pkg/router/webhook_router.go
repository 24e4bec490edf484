package router

import (
	"github.com/causekit/CauseLedger/app/controllers"
	"github.com/causekit/CauseLedger/internal/pkg/constants"
	"github.com/gofiber/fiber/v2"
)

type WebhookRouter struct {
}

// InstallRouter mounts the per-provider ingestion endpoints. Each endpoint
// answers POST and the CORS preflight; every other method is 405. The
// signature check happens inside the handler pipeline, before any database
// write, so no auth middleware sits here.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	group := app.Group(constants.WebhooksRoute)

	group.Post("/coursehub", controllers.HandleCourseHubWebhook)
	group.Post("/payflow", controllers.HandlePayflowWebhook)
	group.Post("/tixbee", controllers.HandleTixbeeWebhook)

	group.Options("/coursehub", controllers.HandleWebhookPreflight)
	group.Options("/payflow", controllers.HandleWebhookPreflight)
	group.Options("/tixbee", controllers.HandleWebhookPreflight)

	group.All("/coursehub", controllers.HandleWebhookMethodNotAllowed)
	group.All("/payflow", controllers.HandleWebhookMethodNotAllowed)
	group.All("/tixbee", controllers.HandleWebhookMethodNotAllowed)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
