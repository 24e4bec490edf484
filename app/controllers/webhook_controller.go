package controllers

import (
	"encoding/json"
	"sync"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/internal/pkg/database"
	"github.com/causekit/CauseLedger/internal/pkg/ratelimit"
	"github.com/causekit/CauseLedger/internal/pkg/webhook"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

var (
	ingestService *webhook.Service
	ingestOnce    sync.Once
)

func getIngestService() *webhook.Service {
	ingestOnce.Do(func() {
		ingestService = webhook.NewServiceFromDB(database.GetDB(), ratelimit.NewLimiterFromEnv())
	})
	return ingestService
}

// HandleCourseHubWebhook receives deliveries from the course platform.
func HandleCourseHubWebhook(c *fiber.Ctx) error {
	d := &webhook.Delivery{
		Source:          models.SourceCourseHub,
		EventType:       c.Get(webhook.CourseHubEventTypeHeader),
		ProviderEventID: c.Get(webhook.CourseHubEventIDHeader),
		SignatureHeader: c.Get(webhook.CourseHubSignatureHeader),
		NonceHeader:     c.Get(webhook.CourseHubNonceHeader),
		TimestampHeader: c.Get(webhook.CourseHubTimestampHeader),
	}
	d.WebhookTimestamp = parseWebhookTimestamp(d.TimestampHeader)
	return handleWebhook(c, d)
}

// HandlePayflowWebhook receives deliveries from the payment processor. The
// event id and type travel in the body envelope; the claimed timestamp is
// the t= element of the signature header.
func HandlePayflowWebhook(c *fiber.Ctx) error {
	d := &webhook.Delivery{
		Source:          models.SourcePayflow,
		SignatureHeader: c.Get(webhook.PayflowSignatureHeader),
	}
	rawBody := append([]byte(nil), c.BodyRaw()...)
	if !json.Valid(rawBody) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_json"})
	}
	eventID, eventType, err := webhook.ParsePayflowEnvelope(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	d.ProviderEventID = eventID
	d.EventType = eventType
	if ts, ok := webhook.PayflowClaimedTimestamp(d.SignatureHeader); ok {
		d.WebhookTimestamp = &ts
		d.TimestampHeader = ts.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	d.RawBody = rawBody
	return ingest(c, d)
}

// HandleTixbeeWebhook receives deliveries from the ticketing platform.
func HandleTixbeeWebhook(c *fiber.Ctx) error {
	d := &webhook.Delivery{
		Source:          models.SourceTixbee,
		EventType:       c.Get(webhook.TixbeeEventHeader),
		ProviderEventID: c.Get(webhook.TixbeeDeliveryHeader),
		SignatureHeader: c.Get(webhook.TixbeeSignatureHeader),
		TimestampHeader: c.Get(webhook.TixbeeTimestampHeader),
	}
	d.WebhookTimestamp = parseWebhookTimestamp(d.TimestampHeader)
	return handleWebhook(c, d)
}

func handleWebhook(c *fiber.Ctx, d *webhook.Delivery) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	if !json.Valid(rawBody) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_json"})
	}
	d.RawBody = rawBody
	return ingest(c, d)
}

// ingest runs the pipeline and maps the outcome to the HTTP contract:
// duplicates and unhandled types are success from the provider's point of
// view, internal details never leak.
func ingest(c *fiber.Ctx, d *webhook.Delivery) error {
	d.RequestID = uuid.NewString()
	d.RemoteIP = GetClientIP(c)

	result := getIngestService().Ingest(d)
	switch result.Outcome {
	case webhook.OutcomeProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	case webhook.OutcomeNotHandled:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case webhook.OutcomeDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case webhook.OutcomeBadSignature:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case webhook.OutcomeRateLimited:
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
	case webhook.OutcomeReplay:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "replay_detected"})
	case webhook.OutcomeBadPayload:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	default:
		if result.Err != nil {
			log.Errorf("[Webhook] ingest failed source=%s request=%s: %v", d.Source, d.RequestID, result.Err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
}

// HandleWebhookPreflight answers CORS preflight for the webhook endpoints.
func HandleWebhookPreflight(c *fiber.Ctx) error {
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Content-Type, X-Coursehub-Signature, X-Payflow-Signature, X-Tixbee-Signature")
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleWebhookMethodNotAllowed rejects anything that is not POST or
// OPTIONS on a webhook endpoint.
func HandleWebhookMethodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
}
