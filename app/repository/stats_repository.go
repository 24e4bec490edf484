package repository

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statsRepository implements the StatsRepository interface
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new ingest stats repository instance
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// ApplyDailyIncrements upserts the per-day, per-source counter row and adds
// the batched increments drained from Redis.
func (r *statsRepository) ApplyDailyIncrements(day time.Time, source string, accepted, duplicate, failed, rejected int64) error {
	row := &models.IngestDailyStat{
		Day:       day.Truncate(24 * time.Hour),
		Source:    source,
		Accepted:  accepted,
		Duplicate: duplicate,
		Failed:    failed,
		Rejected:  rejected,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "day"},
			{Name: "source"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"accepted":  gorm.Expr("accepted + ?", accepted),
			"duplicate": gorm.Expr("duplicate + ?", duplicate),
			"failed":    gorm.Expr("failed + ?", failed),
			"rejected":  gorm.Expr("rejected + ?", rejected),
		}),
	}).Create(row).Error
}

// GetDailyStats retrieves counter rows for a date range
func (r *statsRepository) GetDailyStats(startDate, endDate time.Time) ([]models.IngestDailyStat, error) {
	var stats []models.IngestDailyStat
	err := r.db.Where("day >= ? AND day <= ?", startDate, endDate).
		Order("day ASC, source ASC").Find(&stats).Error
	return stats, err
}
