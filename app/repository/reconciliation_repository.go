package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reconciliationRepository implements the ReconciliationRepository interface
type reconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new reconciliation repository instance
func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

// ListCompletedSince returns completed transactions in the scan window,
// ordered so the reconciler can walk per-contact runs in one pass.
func (r *reconciliationRepository) ListCompletedSince(since time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.Where("status = ? AND transaction_date >= ?", models.TransactionStatusCompleted, since).
		Order("contact_id ASC, transaction_date ASC").Find(&txns).Error
	return txns, err
}

// FlagIfNew persists a worklist entry unless the ordered pair was already
// flagged by an earlier scan.
func (r *reconciliationRepository) FlagIfNew(flag *models.DuplicateFlag) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "transaction_id"},
			{Name: "other_transaction_id"},
		},
		DoNothing: true,
	}).Create(flag)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ListFlags retrieves worklist entries, optionally filtered by status
func (r *reconciliationRepository) ListFlags(status string, offset, limit int) ([]models.DuplicateFlag, error) {
	var flags []models.DuplicateFlag
	q := r.db.Order("detected_at DESC").Offset(offset).Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&flags).Error
	return flags, err
}
