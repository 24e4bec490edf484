package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
)

// EventRepository defines the ledger operations for inbound webhook events.
type EventRepository interface {
	// RecordIfNew inserts the ledger row unless the (source, dedup_key)
	// pair already exists. It returns created=false with the stored row
	// when a concurrent or retried delivery already won the insert.
	RecordIfNew(event *models.InboundEvent) (bool, *models.InboundEvent, error)
	MarkStatus(id uint, status, errorCode, errorMessage string, durationMs int64) error
	GetByID(id uint) (*models.InboundEvent, error)
	ListByStatus(status string, offset, limit int) ([]models.InboundEvent, error)
	CountByStatusSince(status string, since time.Time) (int64, error)
	SavePayload(payload *models.WebhookPayload) error
	GetPayloadByEventID(eventID uint) (*models.WebhookPayload, error)
}

// NonceRepository defines the replay-guard store.
type NonceRepository interface {
	// RecordIfFresh inserts the nonce unless it was already consumed
	// within the recency window; the unique index serializes racers.
	RecordIfFresh(source, nonce string, notBefore time.Time) (bool, error)
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

// ContactRepository defines contact resolution for the upsert processor.
type ContactRepository interface {
	GetByEmail(email string) (*models.Contact, error)
	Create(contact *models.Contact) error
	UpdateProviderRef(contactID uint, source, externalID string) error
}

// TransactionRepository defines provenance-keyed transaction writes.
type TransactionRepository interface {
	// CreateIfAbsent inserts the transaction unless one with the same
	// (source_system, external_transaction_id) exists; a retry of the
	// same provider transaction is a no-op, never an update.
	CreateIfAbsent(txn *models.Transaction) (bool, error)
	GetBySourceAndExternalID(sourceSystem, externalTransactionID string) (*models.Transaction, error)
	ListByContact(contactID uint) ([]models.Transaction, error)
}

// TagRepository defines idempotent tag and role side effects.
type TagRepository interface {
	AttachTag(contactID uint, tagName string) error
	GrantRole(contactID uint, role, grantedBy string) error
}

// AlertRepository records and lists security alerts.
type AlertRepository interface {
	Create(alert *models.SecurityAlert) error
	List(offset, limit int) ([]models.SecurityAlert, error)
	CountSince(since time.Time) (int64, error)
}

// ReconciliationRepository backs the cross-source duplicate reconciler.
type ReconciliationRepository interface {
	// ListCompletedSince returns completed transactions ordered by
	// contact and date for the scan window.
	ListCompletedSince(since time.Time) ([]models.Transaction, error)
	// FlagIfNew persists a worklist entry unless the ordered pair was
	// already flagged.
	FlagIfNew(flag *models.DuplicateFlag) (bool, error)
	ListFlags(status string, offset, limit int) ([]models.DuplicateFlag, error)
}

// StatsRepository applies batched counter increments and serves monitoring
// aggregates.
type StatsRepository interface {
	ApplyDailyIncrements(day time.Time, source string, accepted, duplicate, failed, rejected int64) error
	GetDailyStats(startDate, endDate time.Time) ([]models.IngestDailyStat, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Event          EventRepository
	Nonce          NonceRepository
	Contact        ContactRepository
	Transaction    TransactionRepository
	Tag            TagRepository
	Alert          AlertRepository
	Reconciliation ReconciliationRepository
	Stats          StatsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Event:          NewEventRepository(db),
		Nonce:          NewNonceRepository(db),
		Contact:        NewContactRepository(db),
		Transaction:    NewTransactionRepository(db),
		Tag:            NewTagRepository(db),
		Alert:          NewAlertRepository(db),
		Reconciliation: NewReconciliationRepository(db),
		Stats:          NewStatsRepository(db),
	}
}
