package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eventRepository implements the EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new inbound event repository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// RecordIfNew inserts the ledger row guarded by the (source, dedup_key)
// unique index. The index, not an application-level check, decides which of
// two concurrent deliveries wins: the loser sees RowsAffected == 0 and gets
// the stored row back.
func (r *eventRepository) RecordIfNew(event *models.InboundEvent) (bool, *models.InboundEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "dedup_key"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.InboundEvent
	if err := r.db.Where("source = ? AND dedup_key = ?", event.Source, event.DedupKey).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkStatus moves a ledger row from received to a terminal status. Rows
// that already reached a terminal status are left untouched.
func (r *eventRepository) MarkStatus(id uint, status, errorCode, errorMessage string, durationMs int64) error {
	updates := map[string]interface{}{
		"status":                 status,
		"error_code":             errorCode,
		"error_message":          errorMessage,
		"processing_duration_ms": durationMs,
	}
	return r.db.Model(&models.InboundEvent{}).
		Where("id = ? AND status = ?", id, models.EventStatusReceived).
		Updates(updates).Error
}

// GetByID retrieves a ledger row by its ID
func (r *eventRepository) GetByID(id uint) (*models.InboundEvent, error) {
	var event models.InboundEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByStatus retrieves ledger rows in a given status with pagination
func (r *eventRepository) ListByStatus(status string, offset, limit int) ([]models.InboundEvent, error) {
	var events []models.InboundEvent
	err := r.db.Where("status = ?", status).
		Order("received_at DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, err
}

// CountByStatusSince counts ledger rows in a status newer than a cutoff
func (r *eventRepository) CountByStatusSince(status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.InboundEvent{}).
		Where("status = ? AND received_at >= ?", status, since).
		Count(&count).Error
	return count, err
}

// SavePayload stores the scrubbed payload copy for an event. A retried save
// for the same event is a no-op.
func (r *eventRepository) SavePayload(payload *models.WebhookPayload) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inbound_event_id"}},
		DoNothing: true,
	}).Create(payload).Error
}

// GetPayloadByEventID retrieves the retained payload for a ledger row
func (r *eventRepository) GetPayloadByEventID(eventID uint) (*models.WebhookPayload, error) {
	var payload models.WebhookPayload
	err := r.db.Where("inbound_event_id = ?", eventID).First(&payload).Error
	if err != nil {
		return nil, err
	}
	return &payload, nil
}
