package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nonceRepository implements the NonceRepository interface
type nonceRepository struct {
	db *gorm.DB
}

// NewNonceRepository creates a new nonce repository instance
func NewNonceRepository(db *gorm.DB) NonceRepository {
	return &nonceRepository{db: db}
}

// RecordIfFresh consumes a nonce as a single insert-if-absent; two racing
// requests are serialized by the (source, nonce) unique index, so exactly
// one observes fresh=true. A leftover nonce older than notBefore (sweeper
// not yet run) is reclaimed by refreshing its created_at rather than
// rejecting the caller.
func (r *nonceRepository) RecordIfFresh(source, nonce string, notBefore time.Time) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "nonce"},
		},
		DoNothing: true,
	}).Create(&models.Nonce{Source: source, Nonce: nonce})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}

	// Conflict: the nonce row exists. Only a row within the recency window
	// counts as consumed; a stale row is reclaimed atomically.
	res := r.db.Model(&models.Nonce{}).
		Where("source = ? AND nonce = ? AND created_at < ?", source, nonce, notBefore).
		Update("created_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// PurgeOlderThan deletes nonces past the trust window
func (r *nonceRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.Nonce{})
	return res.RowsAffected, res.Error
}
