package repository

import (
	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// CreateIfAbsent inserts the transaction guarded by the unique
// (source_system, external_transaction_id) index. An existing row means the
// provider retried an already-recorded transaction: the write is a no-op so
// reconciled data can never be overwritten by a late retry.
func (r *transactionRepository) CreateIfAbsent(txn *models.Transaction) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_system"},
			{Name: "external_transaction_id"},
		},
		DoNothing: true,
	}).Create(txn)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// GetBySourceAndExternalID retrieves a transaction by its provenance key
func (r *transactionRepository) GetBySourceAndExternalID(sourceSystem, externalTransactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("source_system = ? AND external_transaction_id = ?", sourceSystem, externalTransactionID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByContact retrieves all transactions for a contact
func (r *transactionRepository) ListByContact(contactID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.Where("contact_id = ?", contactID).
		Order("transaction_date DESC").Find(&txns).Error
	return txns, err
}
