package controllers

import (
	"errors"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/reconcile"
	"github.com/causekit/CauseLedger/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// HandleFailedEvents lists ledger rows that ended in failure, newest first.
func HandleFailedEvents(c *fiber.Ctx) error {
	offset, limit := offsetLimit(c)
	events, err := repository.GetGlobalFactory().GetEventRepository().
		ListByStatus(models.EventStatusFailed, offset, limit)
	if err != nil {
		log.Errorf("[Monitoring] failed events query: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"events": events, "offset": offset, "limit": limit})
}

// HandleEventPayload returns the retained, scrubbed payload for one ledger
// row.
func HandleEventPayload(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_event_id"})
	}
	payload, err := repository.GetGlobalFactory().GetEventRepository().
		GetPayloadByEventID(uint(eventID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Errorf("[Monitoring] payload query: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(payload)
}

// HandleSecurityAlerts lists replay/signature/rate-limit alerts.
func HandleSecurityAlerts(c *fiber.Ctx) error {
	offset, limit := offsetLimit(c)
	alerts, err := repository.GetGlobalFactory().GetAlertRepository().List(offset, limit)
	if err != nil {
		log.Errorf("[Monitoring] alerts query: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"alerts": alerts, "offset": offset, "limit": limit})
}

// HandleDuplicateFlags lists the reconciler worklist.
func HandleDuplicateFlags(c *fiber.Ctx) error {
	offset, limit := offsetLimit(c)
	status := c.Query("status", models.DuplicateFlagOpen)
	flags, err := repository.GetGlobalFactory().GetReconciliationRepository().
		ListFlags(status, offset, limit)
	if err != nil {
		log.Errorf("[Monitoring] duplicate flags query: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"flags": flags, "offset": offset, "limit": limit})
}

// HandleReconcileScan triggers an on-demand reconciliation pass and reports
// how many new worklist entries it filed.
func HandleReconcileScan(c *fiber.Ctx) error {
	scanner := reconcile.NewScanner(
		repository.GetGlobalFactory().GetReconciliationRepository(),
		reconcile.ConfigFromEnv(),
	)
	flagged, err := scanner.Scan()
	if err != nil {
		log.Errorf("[Monitoring] reconcile scan: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"ok": true, "flagged": flagged})
}

// HandleIngestStats serves the cached throughput/error-rate overview.
func HandleIngestStats(c *fiber.Ctx) error {
	overview, err := statistics.GetOverview()
	if err != nil {
		log.Errorf("[Monitoring] stats query: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(overview)
}
