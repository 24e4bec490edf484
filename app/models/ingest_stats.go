package models

import "time"

// IngestDailyStat is the per-day, per-source ingestion counter row the
// Redis counters flush into. It backs the throughput/error-rate monitoring
// views and is never read on the request path.
type IngestDailyStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       time.Time `gorm:"type:date;not null;index:ux_ingest_daily_stats_day_source,unique,priority:1" json:"day"`
	Source    string    `gorm:"type:varchar(20);not null;index:ux_ingest_daily_stats_day_source,unique,priority:2" json:"source"`
	Accepted  int64     `gorm:"default:0" json:"accepted"`
	Duplicate int64     `gorm:"default:0" json:"duplicate"`
	Failed    int64     `gorm:"default:0" json:"failed"`
	Rejected  int64     `gorm:"default:0" json:"rejected"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DailyStats is the generic date/count pair used by monitoring queries.
type DailyStats struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
