package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
)

// alertRepository implements the AlertRepository interface
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new security alert repository instance
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create records a new security alert
func (r *alertRepository) Create(alert *models.SecurityAlert) error {
	return r.db.Create(alert).Error
}

// List retrieves security alerts with pagination, newest first
func (r *alertRepository) List(offset, limit int) ([]models.SecurityAlert, error) {
	var alerts []models.SecurityAlert
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&alerts).Error
	return alerts, err
}

// CountSince counts alerts newer than a cutoff
func (r *alertRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.SecurityAlert{}).
		Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
