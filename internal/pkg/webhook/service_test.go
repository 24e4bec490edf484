package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc    *Service
	events *fakeEventRepo
	alerts *fakeAlertRepo
	nonces *fakeNonceRepo
	txns   *fakeTransactionRepo
}

const testSecret = "ch-secret"

func newServiceFixture(limiter RateLimiter) *serviceFixture {
	events := &fakeEventRepo{}
	alerts := &fakeAlertRepo{}
	nonces := newFakeNonceRepo()
	contacts := newFakeContactRepo()
	txns := &fakeTransactionRepo{}
	tags := newFakeTagRepo()

	repos := &repository.Repositories{Contact: contacts, Transaction: txns, Tag: tags}
	svc := NewService(
		events,
		alerts,
		replay.NewGuard(nonces, 15*time.Minute, 5*time.Minute),
		limiter,
		DefaultRegistry(),
		NewProcessor(fakeUnitOfWork(repos)),
		map[string]string{models.SourceCourseHub: testSecret},
	)
	return &serviceFixture{svc: svc, events: events, alerts: alerts, nonces: nonces, txns: txns}
}

func courseHubDelivery(requestID, eventID, nonce string, body []byte) *Delivery {
	return &Delivery{
		Source:          models.SourceCourseHub,
		EventType:       CourseHubOrderCreated,
		ProviderEventID: eventID,
		RequestID:       requestID,
		SignatureHeader: hexMAC(body, testSecret),
		NonceHeader:     nonce,
		RemoteIP:        "198.51.100.9",
		RawBody:         body,
	}
}

var validOrderBody = []byte(`{
	"order": {"id": "ord_1", "transaction_id": "txn_1", "total_cents": 14900, "currency": "USD"},
	"user": {"id": "u_7", "email": "dana@example.org", "first_name": "Dana"}
}`)

func TestIngestHappyPath(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	res := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody))

	assert.Equal(t, OutcomeProcessed, res.Outcome)
	require.NotNil(t, res.Event)

	stored, err := f.events.GetByID(res.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusSuccess, stored.Status)
	assert.Equal(t, "evt_1", stored.DedupKey)
	assert.True(t, stored.SignatureValid)
	assert.Len(t, f.txns.rows, 1)

	payload, err := f.events.GetPayloadByEventID(res.Event.ID)
	require.NoError(t, err)
	assert.Contains(t, payload.Body, "***@example.org", "retained payload must mask emails")
}

func TestIngestBadSignature(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	d := courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody)
	d.SignatureHeader = hexMAC(validOrderBody, "wrong-secret")

	res := f.svc.Ingest(d)

	assert.Equal(t, OutcomeBadSignature, res.Outcome)
	assert.Nil(t, res.Event, "a forged delivery must leave no ledger row")
	assert.Empty(t, f.events.rows)
	assert.Equal(t, models.AlertInvalidSignature, f.alerts.lastType())
}

func TestIngestUnconfiguredSecretFailsClosed(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	d := courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody)
	d.Source = models.SourcePayflow // no secret configured for payflow in fixture

	res := f.svc.Ingest(d)
	assert.Equal(t, OutcomeBadSignature, res.Outcome)
}

func TestIngestRateLimited(t *testing.T) {
	f := newServiceFixture(denyAllLimiter{})

	res := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody))

	assert.Equal(t, OutcomeRateLimited, res.Outcome)
	assert.Empty(t, f.events.rows)
	assert.Equal(t, models.AlertRateLimited, f.alerts.lastType())
}

func TestIngestReplayedNonceRejected(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	first := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody))
	require.Equal(t, OutcomeProcessed, first.Outcome)

	// Same signature, same nonce, different request id: a captured replay.
	replayed := f.svc.Ingest(courseHubDelivery("req-2", "evt_1", "nonce-1", validOrderBody))

	assert.Equal(t, OutcomeReplay, replayed.Outcome)
	assert.Equal(t, models.AlertReplayedNonce, f.alerts.lastType())
	assert.Len(t, f.events.rows, 1, "replay must not add a ledger row")
}

func TestIngestTimestampSkewRejected(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	stale := time.Now().Add(-2 * time.Hour).UTC()
	d := courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody)
	d.WebhookTimestamp = &stale

	res := f.svc.Ingest(d)

	assert.Equal(t, OutcomeReplay, res.Outcome)
	assert.Equal(t, models.AlertTimestampSkew, f.alerts.lastType())
	assert.Empty(t, f.events.rows)
}

func TestIngestDuplicateProviderEventID(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	first := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody))
	require.Equal(t, OutcomeProcessed, first.Outcome)

	// Honest provider retry: same event id, fresh nonce and request id.
	retry := f.svc.Ingest(courseHubDelivery("req-2", "evt_1", "nonce-2", validOrderBody))

	assert.Equal(t, OutcomeDuplicate, retry.Outcome)
	require.NotNil(t, retry.Event)
	assert.Equal(t, first.Event.ID, retry.Event.ID)
	assert.Len(t, f.events.rows, 1)
	assert.Len(t, f.txns.rows, 1, "duplicate must not reach the processor")
}

func TestIngestMissingProviderEventIDUsesRequestFallback(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	a := f.svc.Ingest(courseHubDelivery("req-1", "", "nonce-1", validOrderBody))
	b := f.svc.Ingest(courseHubDelivery("req-2", "", "nonce-2", validOrderBody))

	assert.Equal(t, OutcomeProcessed, a.Outcome)
	assert.Equal(t, "req:req-1", a.Event.DedupKey)
	assert.Equal(t, "req:req-2", b.Event.DedupKey)
	assert.Len(t, f.events.rows, 2, "distinct requests without provider ids are distinct events")

	// The second body still carries the same provider transaction id, so
	// the financial layer catches what the ledger could not.
	assert.Equal(t, OutcomeDuplicate, b.Outcome)
	assert.Len(t, f.txns.rows, 1)
}

func TestIngestRepeatedProviderTransactionMarkedDuplicate(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	first := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody))
	require.Equal(t, OutcomeProcessed, first.Outcome)

	// Fresh event id and nonce, but the body carries the same provider
	// transaction id. The ledger admits it; the financial layer must not.
	retry := f.svc.Ingest(courseHubDelivery("req-2", "evt_2", "nonce-2", validOrderBody))

	assert.Equal(t, OutcomeDuplicate, retry.Outcome)
	stored, err := f.events.GetByID(retry.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDuplicate, stored.Status)
	assert.Equal(t, "transaction_exists", stored.ErrorCode)
	assert.Len(t, f.txns.rows, 1, "the same provider transaction is recorded once")
}

func TestIngestUnknownEventTypeAcknowledged(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	d := courseHubDelivery("req-1", "evt_1", "nonce-1", validOrderBody)
	d.EventType = "course.published"

	res := f.svc.Ingest(d)

	assert.Equal(t, OutcomeNotHandled, res.Outcome)
	stored, err := f.events.GetByID(res.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusSuccess, stored.Status)
	assert.Equal(t, "not_handled", stored.ErrorCode)
	assert.Empty(t, f.txns.rows)
}

func TestIngestMalformedPayloadMarksFailed(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	body := []byte(`{"order": {"id": "ord_1"}, "user": {"email": "not-an-email"}}`)
	res := f.svc.Ingest(courseHubDelivery("req-1", "evt_1", "nonce-1", body))

	assert.Equal(t, OutcomeBadPayload, res.Outcome)
	stored, err := f.events.GetByID(res.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusFailed, stored.Status)
	assert.Equal(t, "invalid_payload", stored.ErrorCode)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestIngestConcurrentSameEventSingleLedgerRow(t *testing.T) {
	f := newServiceFixture(allowAllLimiter{})

	results := make(chan IngestResult, 8)
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			results <- f.svc.Ingest(courseHubDelivery(fmt.Sprintf("req-%d", i), "evt_race", fmt.Sprintf("nonce-%d", i), validOrderBody))
		}()
	}

	processed := 0
	for i := 0; i < 8; i++ {
		res := <-results
		if res.Outcome == OutcomeProcessed {
			processed++
		} else {
			assert.Equal(t, OutcomeDuplicate, res.Outcome)
		}
	}

	assert.Equal(t, 1, processed, "exactly one racer wins the ledger insert")
	assert.Len(t, f.events.rows, 1)
	assert.Len(t, f.txns.rows, 1)
}
