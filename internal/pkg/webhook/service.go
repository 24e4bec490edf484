package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/causekit/CauseLedger/internal/pkg/metrics/counter"
	"github.com/causekit/CauseLedger/internal/pkg/replay"
	"github.com/causekit/CauseLedger/internal/pkg/sanitize"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Outcome classifies what happened to one delivery, for the HTTP layer to
// map to a status code.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeNotHandled
	OutcomeDuplicate
	OutcomeBadSignature
	OutcomeRateLimited
	OutcomeReplay
	OutcomeBadPayload
	OutcomeInternalError
)

// IngestResult is the service-level answer for one delivery.
type IngestResult struct {
	Outcome Outcome
	Event   *models.InboundEvent
	Err     error
}

// RateLimiter is the throttle the ingest pipeline consults per source IP.
type RateLimiter interface {
	Allow(identifier string) bool
}

// Service runs the ingest pipeline: signature, rate limit, replay guard,
// ledger insert, dispatch, atomic processing. Each gating decision that
// must hold across replicas lives in the shared store, not here.
type Service struct {
	events    repository.EventRepository
	alerts    repository.AlertRepository
	guard     *replay.Guard
	limiter   RateLimiter
	registry  *Registry
	processor *Processor
	secrets   map[string]string
}

// NewService wires the pipeline from its parts.
func NewService(
	events repository.EventRepository,
	alerts repository.AlertRepository,
	guard *replay.Guard,
	limiter RateLimiter,
	registry *Registry,
	processor *Processor,
	secrets map[string]string,
) *Service {
	return &Service{
		events:    events,
		alerts:    alerts,
		guard:     guard,
		limiter:   limiter,
		registry:  registry,
		processor: processor,
		secrets:   secrets,
	}
}

// NewServiceFromDB builds the production service over a GORM handle with
// secrets and thresholds resolved from configuration.
func NewServiceFromDB(db *gorm.DB, limiter RateLimiter) *Service {
	repos := repository.NewRepositories(db)
	guard := replay.NewGuardFromEnv(repos.Nonce)
	return NewService(
		repos.Event,
		repos.Alert,
		guard,
		limiter,
		DefaultRegistry(),
		NewProcessor(GormUnitOfWork(db)),
		SecretsFromEnv(),
	)
}

// SecretsFromEnv resolves the per-provider shared secrets. A missing key
// stays empty, which the signature check treats as fail-closed.
func SecretsFromEnv() map[string]string {
	return map[string]string{
		models.SourceCourseHub: env.GetEnv("COURSEHUB_WEBHOOK_SECRET", ""),
		models.SourcePayflow:   env.GetEnv("PAYFLOW_WEBHOOK_SECRET", ""),
		models.SourceTixbee:    env.GetEnv("TIXBEE_WEBHOOK_SECRET", ""),
	}
}

// Ingest runs the full pipeline for one delivery. The gate order is fixed:
// signature before anything touches the ledger, then rate limit, then the
// replay guard, then the idempotent ledger insert, then dispatch.
func (s *Service) Ingest(d *Delivery) IngestResult {
	started := time.Now()

	// 1. Authenticity. An unconfigured secret fails exactly like a forged
	// signature; this is the sole defense against fabricated financial
	// events and it never degrades.
	if !VerifySignature(d.Source, d.RawBody, d.SignatureHeader, s.secrets[d.Source]) {
		s.raiseAlert(d, models.AlertInvalidSignature, "signature mismatch or missing secret")
		counter.AddRejected(d.Source)
		return IngestResult{Outcome: OutcomeBadSignature}
	}

	// 2. Volume. Counters are centralized, so the ceiling holds across
	// replicas.
	if !s.limiter.Allow(d.RemoteIP) {
		s.raiseAlert(d, models.AlertRateLimited, "request ceiling exceeded")
		counter.AddRejected(d.Source)
		return IngestResult{Outcome: OutcomeRateLimited}
	}

	// 3. Replay. Timestamp skew is a second layer, flagged and rejected
	// independently of the nonce outcome.
	if s.guard.SkewExceeded(d.WebhookTimestamp, started) {
		s.raiseAlert(d, models.AlertTimestampSkew,
			fmt.Sprintf("claimed timestamp %s implausible", d.WebhookTimestamp.UTC().Format(time.RFC3339)))
		counter.AddRejected(d.Source)
		return IngestResult{Outcome: OutcomeReplay}
	}
	nonce := replay.DeriveNonce(d.NonceHeader, d.SignatureHeader, d.TimestampHeader)
	fresh, err := s.guard.CheckAndRecord(d.Source, nonce)
	if err != nil {
		return IngestResult{Outcome: OutcomeInternalError, Err: err}
	}
	if !fresh {
		s.raiseAlert(d, models.AlertReplayedNonce, "nonce already consumed")
		counter.AddRejected(d.Source)
		return IngestResult{Outcome: OutcomeReplay}
	}

	// 4. Ledger. The unique index decides newness; the losing writer of a
	// concurrent retry pair sees created=false and answers success.
	event := s.buildLedgerRow(d)
	created, stored, err := s.events.RecordIfNew(event)
	if err != nil {
		return IngestResult{Outcome: OutcomeInternalError, Err: err}
	}
	if !created {
		counter.AddDuplicate(d.Source)
		return IngestResult{Outcome: OutcomeDuplicate, Event: stored}
	}

	body, truncated := sanitize.ScrubPayload(d.RawBody)
	if err := s.events.SavePayload(&models.WebhookPayload{
		InboundEventID: stored.ID,
		Body:           body,
		Truncated:      truncated,
	}); err != nil {
		log.Warnf("[Webhook] payload retention failed for event %d: %v", stored.ID, err)
	}

	// 5. Dispatch. Unknown event types are acknowledged without state
	// change so new provider types never break ingestion.
	handler, ok := s.registry.Lookup(d.Source, d.EventType)
	if !ok {
		s.finish(stored.ID, models.EventStatusSuccess, "not_handled", "", started)
		counter.AddAccepted(d.Source)
		return IngestResult{Outcome: OutcomeNotHandled, Event: stored}
	}

	normalized, err := handler(d.RawBody)
	if err != nil {
		s.finish(stored.ID, models.EventStatusFailed, "invalid_payload", sanitize.ErrorMessage(err), started)
		counter.AddFailed(d.Source)
		return IngestResult{Outcome: OutcomeBadPayload, Event: stored, Err: err}
	}

	// 6. Atomic unit. Partial application is impossible: contact,
	// transaction and side effects commit together or not at all.
	procRes, err := s.processor.Process(d.Source, normalized)
	if err != nil {
		s.finish(stored.ID, models.EventStatusFailed, "processing_failed", sanitize.ErrorMessage(err), started)
		counter.AddFailed(d.Source)
		return IngestResult{Outcome: OutcomeInternalError, Event: stored, Err: err}
	}

	// A retry that slipped past the ledger (fresh event id, same provider
	// transaction) surfaces here: the financial write was a no-op.
	if normalized.Transaction != nil && !procRes.TransactionWritten {
		s.finish(stored.ID, models.EventStatusDuplicate, "transaction_exists", "", started)
		counter.AddDuplicate(d.Source)
		return IngestResult{Outcome: OutcomeDuplicate, Event: stored}
	}

	s.finish(stored.ID, models.EventStatusSuccess, "", "", started)
	counter.AddAccepted(d.Source)
	return IngestResult{Outcome: OutcomeProcessed, Event: stored}
}

func (s *Service) buildLedgerRow(d *Delivery) *models.InboundEvent {
	eventID := sanitize.CleanString(d.ProviderEventID, 191)
	dedup := eventID
	if dedup == "" {
		dedup = "req:" + d.RequestID
	}
	return &models.InboundEvent{
		RequestID:        d.RequestID,
		ProviderEventID:  eventID,
		DedupKey:         dedup,
		Source:           d.Source,
		EventType:        sanitize.CleanString(d.EventType, 100),
		SignatureValid:   true,
		Status:           models.EventStatusReceived,
		WebhookTimestamp: d.WebhookTimestamp,
	}
}

func (s *Service) finish(eventID uint, status, errorCode, errorMessage string, started time.Time) {
	if err := s.events.MarkStatus(eventID, status, errorCode, errorMessage, time.Since(started).Milliseconds()); err != nil {
		log.Errorf("[Webhook] failed to mark event %d %s: %v", eventID, status, err)
	}
}

func (s *Service) raiseAlert(d *Delivery, alertType, detail string) {
	alert := &models.SecurityAlert{
		Source:    d.Source,
		AlertType: alertType,
		RequestID: d.RequestID,
		RemoteIP:  sanitize.CleanString(d.RemoteIP, 45),
		Detail:    sanitize.CleanString(detail, 255),
	}
	if err := s.alerts.Create(alert); err != nil {
		log.Errorf("[Webhook] failed to record %s alert: %v", alertType, err)
	}
	log.Warnf("[Webhook] %s source=%s request=%s ip=%s: %s",
		alertType, d.Source, d.RequestID, d.RemoteIP, strings.TrimSpace(detail))
}
